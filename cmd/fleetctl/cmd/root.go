package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/guard"
	"github.com/jrsteele09/go-fleet-admin/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugLog   bool
	jsonOutput bool
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "fleetctl administers a vehicle fleet",
	Long: `Command line client for the fleet management API: vehicles, maintenance
requests, inter-branch transfers and pending approvals. The session is kept in
the data folder and renewed automatically while the refresh token is valid.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(cfg.GetLogLevel())
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		printBanner(cmd.OutOrStdout(), cfg.GetAppName())
		return cmd.Help()
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $FLEET_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "log every request to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debugLog {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// loginPrompt tells the user to sign in again when the session dies
// underneath a running command.
type loginPrompt struct {
	cmd *cobra.Command
}

func (p loginPrompt) ForceLogin() {
	fmt.Fprintln(p.cmd.ErrOrStderr(), "Session expired. Run `fleetctl login` to sign in again.")
}

// withClient builds a client, restores the persisted session and runs fn.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *fleetclient.Client) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := fleetclient.New(cfg, fleetclient.WithNavigator(loginPrompt{cmd: cmd}), fleetclient.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Err(err).Msg("Failed to close session store")
		}
	}()

	c.Start(ctx)
	return fn(ctx, c)
}

// screen runs fn as the screen at route, after the route guard admits it.
func screen(cmd *cobra.Command, route string, fn func(ctx context.Context, c *fleetclient.Client) error) error {
	return withClient(cmd, func(ctx context.Context, c *fleetclient.Client) error {
		if err := admit(c, route); err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

func admit(c *fleetclient.Client, route string) error {
	d := c.Navigate(route)
	if d.Action == guard.Admit {
		return nil
	}
	if strings.HasPrefix(d.Target, guard.LoginRoute) {
		return fmt.Errorf("not signed in: run `fleetctl login --return-to %s`", route)
	}
	return fmt.Errorf("your role cannot open %s", route)
}
