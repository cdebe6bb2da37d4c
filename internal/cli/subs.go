package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipper/internal/ports/adapters/ytdlp"
)

func newSubsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "subs <url>",
		Short: "List the subtitle languages available for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			tracks, err := ytdlp.New(cfg.Tools.YtDlp, cfg.Tools.Cookies, cfg.Logf).ListSubtitles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), `No subtitles; use --lang none to transcribe the audio`)
				return nil
			}
			t := table{header: []string{"LANG", "KIND", "NAME"}}
			for _, tr := range tracks {
				kind := "manual"
				if tr.Auto {
					kind = "auto"
				}
				t.add(tr.Lang, kind, tr.Name)
			}
			t.write(cmd.OutOrStdout())
			return nil
		},
	}
}
