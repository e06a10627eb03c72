package cli

import (
	"fmt"

	"github.com/dmitrijs2005/kosync/internal/server/backup"
	"github.com/spf13/cobra"
)

func newDBCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and back up the store",
	}
	cmd.AddCommand(newDBInfoCmd(st), newDBBackupCmd(st))
	return cmd
}

func newDBInfoCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.Store().Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:     %s\n", st.cfg.DBPath)
			fmt.Fprintf(out, "Size:     %d bytes\n", s.Size)
			fmt.Fprintf(out, "Users:    %d\n", s.Users)
			fmt.Fprintf(out, "Progress: %d\n", s.Progress)
			return nil
		},
	}
}

func newDBBackupCmd(st *state) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the store",
		Long: `Write a consistent copy of the store while it stays usable.

--output accepts a file path, s3://[bucket][/key] (signed with the configured
S3 credentials) or a presigned https:// PUT URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := backup.ParseTarget(output)
			if err != nil {
				return err
			}

			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := backup.Run(cmd.Context(), a.Store(), target, st.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%d bytes)\n", res.Target, res.Bytes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "backup destination")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
