package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipper/internal/clips"
	"github.com/forPelevin/clipper/internal/pipeline"
	"github.com/forPelevin/clipper/internal/types"
	"github.com/forPelevin/clipper/internal/usecase"
)

func newProduceCmd(g *globalFlags) *cobra.Command {
	var pf produceFlags
	cmd := &cobra.Command{
		Use:   "produce <session-id>",
		Short: "Render highlights of a discovered session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			o, err := pipeline.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer o.Close()
			ctx, stop := withInterrupts(cmd.Context(), cmd.ErrOrStderr(), o)
			defer stop()

			sess, err := o.Resume(args[0])
			if err != nil {
				return err
			}
			printHighlights(cmd.OutOrStdout(), sess.Highlights)

			selected, err := chooseHighlights(cmd.InOrStdin(), cmd.ErrOrStderr(), sess.Highlights, pf.selection)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return errors.New("no highlights selected")
			}
			return runProduction(ctx, cmd, o, sess, selected, pf.options())
		},
	}
	pf.register(cmd)
	return cmd
}

func runProduction(
	ctx context.Context,
	cmd *cobra.Command,
	o *pipeline.Orchestrator,
	sess *types.Session,
	selected []types.Highlight,
	opts types.EnhancementOptions,
) error {
	job, err := o.StartProduction(ctx, sess, selected, opts, newProgressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return describeFailure(err)
	}
	_, err = job.Wait()

	out := cmd.OutOrStdout()
	if done, lerr := clips.List(sess.SessionDir); lerr == nil && len(done) > 0 {
		printClips(out, done)
	}
	printUsage(cmd.ErrOrStderr(), o.Usage())
	if err != nil {
		return describeFailure(err)
	}
	fmt.Fprintf(out, "Rendered %d clips into %s\n", len(selected), sess.SessionDir)
	return nil
}

func describeFailure(err error) error {
	if errors.Is(err, usecase.ErrCancelled) {
		return errors.New("cancelled; finished work was kept")
	}
	return err
}
