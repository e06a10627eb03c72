package cli

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/server/models"
	"github.com/spf13/cobra"
)

func newUserCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(
		newUserCreateCmd(st),
		newUserListCmd(st),
		newUserRemoveCmd(st),
		newUserResetPasswordCmd(st),
	)
	return cmd
}

func newUserCreateCmd(st *state) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(cmd, password)
			if err != nil {
				return err
			}

			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Accounts().Register(cmd.Context(), args[0], pw)
			if errors.Is(err, common.ErrUserExists) {
				return fmt.Errorf("user %q already exists", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User %q created\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", `password, or "-" to read it from stdin`)
	return cmd
}

func newUserListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.Accounts().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users")
				return nil
			}

			sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tLAST ACTIVITY")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\n", u.Username, lastActivity(u))
			}
			return w.Flush()
		},
	}
}

func lastActivity(u models.User) string {
	if u.LastActivity == nil {
		return "never"
	}
	return time.UnixMilli(*u.LastActivity).UTC().Format(time.RFC3339)
}

func newUserRemoveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <username>",
		Aliases: []string{"rm"},
		Short:   "Remove a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Accounts().RemoveUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q removed\n", args[0])
			return nil
		},
	}
}

func newUserResetPasswordCmd(st *state) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Replace a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(cmd, password)
			if err != nil {
				return err
			}

			a, err := st.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Accounts().ResetPassword(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password for %q updated\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", `new password, or "-" to read it from stdin`)
	return cmd
}
