// Package cli implements the kosync command tree: the server itself plus
// offline administration of users and of the store file.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/kosync/internal/logging"
	"github.com/dmitrijs2005/kosync/internal/server"
	"github.com/dmitrijs2005/kosync/internal/server/config"
	"github.com/spf13/cobra"
)

// state is shared by every command of one invocation.
type state struct {
	cfg    *config.Config
	logger logging.Logger
}

// newApp opens the store. The caller must defer app.Close().
func (s *state) newApp(ctx context.Context) (*server.App, error) {
	a, err := server.NewApp(ctx, s.cfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "kosync",
		Short:         "KOReader progress sync server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd.Flags())
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = logger
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(st),
		newUserCmd(st),
		newDBCmd(st),
	)
	return root
}

func newServeCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Run(cmd.Context())
		},
	}
}

// Execute runs the command tree against os.Args and returns the process exit
// code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
