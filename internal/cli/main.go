package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipper/internal/pipeline"
)

type globalFlags struct {
	configPath string
	outDir     string
	verbose    bool
}

func Main() {
	root := newRootCmd(os.Stdin)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "clipper",
		Short:         "Find highlights in online videos and cut them into vertical clips",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $CLIPPER_CONFIG or clipper.yaml)")
	root.PersistentFlags().StringVar(&g.outDir, "out", "", "Sessions directory (overrides output_dir)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log tool invocations")

	root.AddCommand(
		newDiscoverCmd(g),
		newProduceCmd(g),
		newSessionsCmd(g),
		newClipsCmd(g),
		newSubsCmd(g),
	)
	return root
}

// config reads the configuration and applies global flag overrides. It does
// not validate: commands that talk to an analysis provider do that.
func (g *globalFlags) config(cmd *cobra.Command) (pipeline.Config, error) {
	cfg, err := pipeline.ReadConfig(g.configPath)
	if err != nil {
		return pipeline.Config{}, err
	}
	if g.outDir != "" {
		cfg.OutputDir = g.outDir
	}
	if g.verbose {
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		cfg.Logf = func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}
	}
	return cfg, nil
}
