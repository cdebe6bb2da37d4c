package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/forPelevin/clipper/internal/domain/highlights"
	"github.com/forPelevin/clipper/internal/types"
)

// Test hooks.
var (
	promptConfirm = defaultPromptConfirm
	promptSelect  = defaultPromptSelect
)

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func defaultPromptConfirm(in io.Reader, out io.Writer, question string) bool {
	if !isTerminal(in) {
		return false
	}

	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithInput(in).WithOutput(out).Run()
	if err != nil {
		return false
	}
	return confirmed
}

// defaultPromptSelect offers the highlights best-first and returns the chosen
// positions in hs. Nothing is selected without a terminal.
func defaultPromptSelect(in io.Reader, out io.Writer, hs []types.Highlight) ([]int, error) {
	if !isTerminal(in) {
		return nil, nil
	}

	pos := make(map[types.Highlight]int, len(hs))
	for i, h := range hs {
		pos[h] = i
	}
	var opts []huh.Option[int]
	for _, h := range highlights.ByScore(hs) {
		label := fmt.Sprintf("[%d/10] %s (%s - %s)", h.ViralityScore, h.Title, h.StartTime, h.EndTime)
		opts = append(opts, huh.NewOption(label, pos[h]))
	}

	var chosen []int
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Highlights to render").
				Description("space to toggle, enter to confirm").
				Options(opts...).
				Value(&chosen),
		),
	).WithInput(in).WithOutput(out).Run()
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}
	return chosen, nil
}

// chooseHighlights resolves --select, or asks interactively when it is empty.
func chooseHighlights(in io.Reader, out io.Writer, hs []types.Highlight, selection string) ([]types.Highlight, error) {
	var (
		idx []int
		err error
	)
	if strings.TrimSpace(selection) != "" {
		idx, err = parseSelection(selection, len(hs))
	} else {
		idx, err = promptSelect(in, out, hs)
	}
	if err != nil {
		return nil, err
	}
	picked := make([]types.Highlight, 0, len(idx))
	for _, i := range idx {
		picked = append(picked, hs[i])
	}
	return picked, nil
}

// parseSelection parses 1-based positions like "1,3-4" or "all" into 0-based
// indexes, keeping the given order and dropping repeats.
func parseSelection(s string, n int) ([]int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	seen := map[int]bool{}
	var out []int
	add := func(i int) error {
		if i < 1 || i > n {
			return fmt.Errorf("highlight %d is out of range 1-%d", i, n)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i-1)
		}
		return nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid selection %q", part)
			}
		}
		step := 1
		if b < a {
			step = -1
		}
		for i := a; ; i += step {
			if err := add(i); err != nil {
				return nil, err
			}
			if i == b {
				break
			}
		}
	}
	return out, nil
}
