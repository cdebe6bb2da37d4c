// Package clips owns the on-disk layout of rendered clips inside a session
// directory: clips/<NNN-slug>/{data.json,master.mp4}.
package clips

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/forPelevin/clipper/internal/types"
)

const (
	DirName   = "clips"
	MetaFile  = "data.json"
	VideoFile = "master.mp4"
)

type Clip struct {
	Dir       string
	VideoPath string
	Meta      types.ClipMeta
}

// Dir returns the directory for the clip at 1-based position index.
func Dir(sessionDir string, index int, title string) string {
	slug := normalizePathSegment(title)
	if slug == "" {
		slug = "clip"
	}
	if r := []rune(slug); len(r) > 48 {
		slug = strings.Trim(string(r[:48]), "-")
	}
	return filepath.Join(sessionDir, DirName, fmt.Sprintf("%03d-%s", index, slug))
}

func WriteMeta(dir string, meta types.ClipMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal clip meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFile), b, 0o644); err != nil {
		return fmt.Errorf("write clip meta: %w", err)
	}
	return nil
}

// List returns the complete clips of a session, ordered by directory name.
// A clip is complete when both its metadata and its video exist.
func List(sessionDir string) ([]Clip, error) {
	root := filepath.Join(sessionDir, DirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list clips: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []Clip
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		video := filepath.Join(dir, VideoFile)
		if _, err := os.Stat(video); err != nil {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, MetaFile))
		if err != nil {
			continue
		}
		var meta types.ClipMeta
		if err := json.Unmarshal(b, &meta); err != nil {
			continue
		}
		out = append(out, Clip{Dir: dir, VideoPath: video, Meta: meta})
	}
	return out, nil
}

// NextIndex returns the first free 1-based clip position, so clips produced
// by a later run never reuse a directory number.
func NextIndex(sessionDir string) (int, error) {
	entries, err := os.ReadDir(filepath.Join(sessionDir, DirName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("list clips: %w", err)
	}
	highest := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "-")
		if n, err := strconv.Atoi(prefix); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
