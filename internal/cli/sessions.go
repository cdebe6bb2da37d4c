package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipper/internal/clips"
	"github.com/forPelevin/clipper/internal/session"
)

func newSessionsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and delete discovery sessions",
	}

	store := func(cmd *cobra.Command) (*session.Store, error) {
		cfg, err := g.config(cmd)
		if err != nil {
			return nil, err
		}
		return session.NewStore(cfg.OutputDir), nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := store(cmd)
			if err != nil {
				return err
			}
			sessions, err := s.List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No sessions in %s\n", s.Root())
				return nil
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session and its highlights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store(cmd)
			if err != nil {
				return err
			}
			sess, err := s.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:    %s\n", sess.ID)
			fmt.Fprintf(out, "Title:      %s\n", sess.VideoInfo.Title)
			fmt.Fprintf(out, "Source:     %s\n", sess.VideoInfo.SourceURL)
			fmt.Fprintf(out, "Status:     %s\n", sess.Status)
			fmt.Fprintf(out, "Clips:      %d\n", sess.ClipsProcessed)
			if sess.TranscriptLanguage != "" {
				fmt.Fprintf(out, "Transcript: %s (%s)\n", sess.TranscriptPath, sess.TranscriptLanguage)
			}
			fmt.Fprintln(out)
			printHighlights(out, sess.Highlights)
			return nil
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session with its video and clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store(cmd)
			if err != nil {
				return err
			}
			if !yes && !promptConfirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Delete session %s and all its clips?", args[0])) {
				return errors.New("not deleted (use --yes to skip the confirmation)")
			}
			if err := s.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(list, show, del)
	return cmd
}

func newClipsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clips <session-id>",
		Short: "List the rendered clips of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			sess, err := session.NewStore(cfg.OutputDir).Load(args[0])
			if err != nil {
				return err
			}
			cs, err := clips.List(sess.SessionDir)
			if err != nil {
				return err
			}
			if len(cs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clips yet")
				return nil
			}
			printClips(cmd.OutOrStdout(), cs)
			return nil
		},
	}
}
