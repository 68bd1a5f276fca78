package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(c.userCreateCmd(), c.userListCmd(), c.userGetCmd(), c.userDeleteCmd())
	return cmd
}

func (c *CLI) userCreateCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "create --username <name> --email <address> --password <password>",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.Users.Register(cmd.Context(), username, email, password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "unique username (at most 20 characters)")
	cmd.Flags().StringVar(&email, "email", "", "unique email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	for _, name := range []string{"username", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *CLI) userListCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			users, err := a.Users.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			if format == "short" {
				for _, u := range users {
					fmt.Fprintf(cmd.OutOrStdout(), "%-6d  %-20s  %s\n", u.ID, u.Username, u.Email)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), users)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format (json or short)")
	return cmd
}

func (c *CLI) userGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.Users.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
}

func (c *CLI) userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.Users.Delete(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
}
