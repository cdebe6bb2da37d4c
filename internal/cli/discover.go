package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipper/internal/pipeline"
	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/types"
	"github.com/forPelevin/clipper/internal/usecase"
)

type produceFlags struct {
	selection string
	captions  bool
	hook      bool
}

func (f *produceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.selection, "select", "", `Highlights to render, e.g. "1,3-4" or "all" (prompted when empty)`)
	cmd.Flags().BoolVar(&f.captions, "captions", false, "Burn captions from the transcript")
	cmd.Flags().BoolVar(&f.hook, "hook", false, "Show the hook text during the first seconds (spoken when a voice is configured)")
}

func (f *produceFlags) options() types.EnhancementOptions {
	return types.EnhancementOptions{Captions: f.captions, HookText: f.hook}
}

func newDiscoverCmd(g *globalFlags) *cobra.Command {
	var (
		clipCount  int
		lang       string
		provider   string
		transcribe bool
		pf         produceFlags
	)
	cmd := &cobra.Command{
		Use:   "discover <url>",
		Short: "Download a video, find its highlights and optionally render them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("clips") {
				cfg.ClipCount = clipCount
			}
			if lang != "" {
				cfg.SubtitleLanguage = lang
			}
			if provider != "" {
				cfg.Provider = provider
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return runDiscover(cmd, cfg, args[0], transcribe, pf)
		},
	}
	cmd.Flags().IntVar(&clipCount, "clips", 5, "Number of highlights to find")
	cmd.Flags().StringVar(&lang, "lang", "", `Subtitle language, or "none" to transcribe the audio`)
	cmd.Flags().StringVar(&provider, "provider", "", "Analysis provider: openrouter or gemini")
	cmd.Flags().BoolVar(&transcribe, "transcribe", false, "Transcribe without asking when no subtitles exist")
	pf.register(cmd)
	return cmd
}

func runDiscover(cmd *cobra.Command, cfg pipeline.Config, url string, transcribe bool, pf produceFlags) error {
	o, err := pipeline.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer o.Close()
	ctx, stop := withInterrupts(cmd.Context(), cmd.ErrOrStderr(), o)
	defer stop()

	obs := newProgressPrinter(cmd.ErrOrStderr())
	job, err := o.StartDiscovery(ctx, usecase.DiscoverRequest{
		URL:              url,
		ClipCount:        cfg.ClipCount,
		SubtitleLanguage: cfg.SubtitleLanguage,
	}, obs)
	if err != nil {
		return err
	}
	sess, err := job.Wait()

	var tnf *ports.TranscriptNotFoundError
	if errors.As(err, &tnf) {
		question := fmt.Sprintf("No %q subtitles for %q. Transcribe the audio with AI?", tnf.Language, tnf.Info.Title)
		if !transcribe && !promptConfirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question) {
			return fmt.Errorf("%w (use --transcribe or --lang none to transcribe the audio)", err)
		}
		job, err = o.ContinueWithTranscription(ctx, usecase.TranscriptionRequest{
			VideoPath:  tnf.VideoPath,
			VideoInfo:  tnf.Info,
			ClipCount:  cfg.ClipCount,
			SessionDir: tnf.SessionDir,
		}, obs)
		if err != nil {
			return describeFailure(err)
		}
		sess, err = job.Wait()
	}
	if err != nil {
		return describeFailure(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: %q\n", sess.ID, sess.VideoInfo.Title)
	printHighlights(out, sess.Highlights)

	selected, err := chooseHighlights(cmd.InOrStdin(), cmd.ErrOrStderr(), sess.Highlights, pf.selection)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Fprintf(out, "No highlights selected. Render later with: clipper produce %s\n", sess.ID)
		printUsage(cmd.ErrOrStderr(), o.Usage())
		return nil
	}
	return runProduction(ctx, cmd, o, sess, selected, pf.options())
}
