package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-fleet-admin/credentials"
	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/guard"
	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/sessions"
	"github.com/spf13/cobra"
)

const passwordEnvVar = "FLEET_PASSWORD"

var (
	loginEmail    string
	loginPassword string
	loginReturnTo string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv(passwordEnvVar)
		}
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("password is required")
			}
			password = strings.TrimSpace(line)
		}

		return withClient(cmd, func(ctx context.Context, c *fleetclient.Client) error {
			principal, err := c.Session.Login(ctx, loginEmail, password)
			if errors.Is(err, fleeterrors.ErrCredentialsInvalid) {
				return errors.New("email or password is incorrect")
			}
			if err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), cfg.GetAppName())
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", principal.DisplayName, principal.Roles)

			next := guard.ResumeTarget(url.Values{guard.ReturnToParam: {loginReturnTo}})
			fmt.Fprintf(cmd.OutOrStdout(), "Continue with: fleetctl open %s\n", next)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *fleetclient.Client) error {
			if err := c.Session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(_ context.Context, c *fleetclient.Client) error {
			p := c.Session.Principal()
			if p == nil {
				return errors.New("not signed in")
			}
			return render(cmd.OutOrStdout(), p,
				[]string{"ID", "NAME", "EMAIL", "ROLES", "BRANCH"},
				[][]string{{p.ID, orDash(p.DisplayName), orDash(p.Email), p.Roles.String(), p.Branch()}})
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and token status without contacting the server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := fleetclient.New(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		current, err := c.Store.Current()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Server:   %s\n", cfg.GetBaseURL())
		fmt.Fprintf(out, "Data:     %s\n", cfg.GetDataFolder())
		if current == nil {
			fmt.Fprintf(out, "Session:  %s\n", sessions.Anonymous)
			return nil
		}
		fmt.Fprintln(out, "Session:  stored")

		info, err := credentials.Inspect(current.AccessToken)
		if errors.Is(err, credentials.ErrNotJWT) {
			fmt.Fprintln(out, "Token:    opaque")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Subject:  %s\n", orDash(info.Subject))
		if info.ExpiresAt != nil {
			state := "valid"
			if info.Expired() {
				state = "expired, renewed on next call"
			}
			fmt.Fprintf(out, "Expires:  %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (default $"+passwordEnvVar+" or prompt)")
	loginCmd.Flags().StringVar(&loginReturnTo, "return-to", "", "route to continue with after signing in")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, statusCmd)
}
