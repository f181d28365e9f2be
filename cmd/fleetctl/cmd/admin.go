package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/spf13/cobra"
)

const (
	pendingRoute  = "/pending"
	profileRoute  = "/profile"
	registerRoute = "/register"
)

var (
	registerName     string
	registerEmail    string
	registerPassword string
	registerPhone    string
	registerBranch   int64
	registerRole     string
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Requests awaiting executive approval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return screen(cmd, pendingRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showPending(ctx, cmd, c)
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Your account details",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return screen(cmd, profileRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showProfile(ctx, cmd, c)
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a staff account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		account := users.NewAccount{
			Name:     registerName,
			Email:    registerEmail,
			Password: registerPassword,
			Role:     users.RoleType(registerRole),
		}
		if registerPhone != "" {
			account.Phone = utils.Ptr(registerPhone)
		}
		if registerBranch > 0 {
			account.BranchID = utils.Ptr(registerBranch)
		}
		if err := account.Validate(); err != nil {
			return err
		}
		return screen(cmd, registerRoute, func(ctx context.Context, c *fleetclient.Client) error {
			if err := c.Auth.Register(ctx, account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account for %s\n", account.Role, account.Email)
			return nil
		})
	},
}

func showPending(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error {
	pending, err := c.API.PendingRequests(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(pending))
	for _, p := range pending {
		rows = append(rows, []string{id(p.ID), p.Type, orDash(p.Description), orDash(p.ProposerName), formatDate(p.RequestDate), orDash(p.Status)})
	}
	return render(cmd.OutOrStdout(), pending, []string{"ID", "TYPE", "DESCRIPTION", "PROPOSER", "CREATED", "STATUS"}, rows)
}

func showProfile(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error {
	p, err := c.API.Profile(ctx)
	if err != nil {
		return err
	}
	verified := "no"
	if p.EmailVerified {
		verified = "yes"
	}
	branch := orDash(p.BranchName)
	if principal := c.Session.Principal(); branch == "-" && principal != nil {
		branch = optionalID(principal.BranchID)
	}
	rows := [][]string{
		{"Name", orDash(p.Name)},
		{"Email", orDash(p.Email)},
		{"Phone", orDash(p.Phone)},
		{"Branch", branch},
		{"Roles", fmt.Sprint(p.Roles)},
		{"Email verified", verified},
	}
	return render(cmd.OutOrStdout(), p, []string{"", ""}, rows)
}

// formatDate shortens RFC 3339 timestamps to their local date and time.
func formatDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return orDash(s)
	}
	return t.Local().Format("2006-01-02 15:04")
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "full name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "login email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "initial password (min 6 characters)")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "phone number")
	registerCmd.Flags().Int64Var(&registerBranch, "branch", 0, "branch id")
	registerCmd.Flags().StringVar(&registerRole, "role", string(users.RegistrableRoles[0]), fmt.Sprintf("one of %v", users.RegistrableRoles))
	for _, name := range []string{"name", "email", "password"} {
		_ = registerCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(pendingCmd, profileCmd, registerCmd)
}
