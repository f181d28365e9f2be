package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/guard"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type screenFunc func(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error

// screens maps navigation routes to the command that renders them.
var screens map[string]screenFunc

func init() {
	screens = map[string]screenFunc{
		"/":             showDashboard,
		"/vehicles":     func(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error { return showVehicles(ctx, cmd, c, fleetapi.VehicleFilter{}) },
		"/maintenance":  func(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error { return showMaintenance(ctx, cmd, c, fleetapi.MaintenanceFilter{}) },
		"/distribution": showDistribution,
		"/pending":      showPending,
		"/profile":      showProfile,
		"/register": func(_ context.Context, cmd *cobra.Command, _ *fleetclient.Client) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Use `fleetctl register` to create an account.")
			return nil
		},
	}
}

var navCmd = &cobra.Command{
	Use:   "nav",
	Short: "List the screens your role can open",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(_ context.Context, c *fleetclient.Client) error {
			if err := admit(c, guard.HomeRoute); err != nil {
				return err
			}
			entries := c.VisibleEntries()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Route, e.Label})
			}
			return render(cmd.OutOrStdout(), entries, []string{"ROUTE", "SCREEN"}, rows)
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <route>",
	Short: "Open a screen by route, as the navigation would",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *fleetclient.Client) error {
			d := c.Navigate(args[0])
			if d.Action == guard.Redirect {
				fmt.Fprintf(cmd.OutOrStdout(), "Redirected to %s\n", d.Target)
				return admit(c, args[0])
			}
			entry, ok := c.Guard.Resolve(d.Target)
			if !ok {
				return fmt.Errorf("no screen at %s", d.Target)
			}
			return screens[entry.Route](ctx, cmd, c)
		})
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Fleet overview",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return screen(cmd, guard.HomeRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showDashboard(ctx, cmd, c)
		})
	},
}

type dashboard struct {
	Vehicles            []fleetapi.Vehicle            `json:"vehicles"`
	PendingMaintenance  []fleetapi.MaintenanceRequest `json:"pendingMaintenance"`
	PendingTransfers    []fleetapi.Transfer           `json:"pendingTransfers"`
	PendingApprovals    []fleetapi.PendingRequest     `json:"pendingApprovals,omitempty"`
	ApprovalsRestricted bool                          `json:"-"`
}

// showDashboard loads the overview lists concurrently. When the access token
// has expired every load hits the same refresh.
func showDashboard(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error {
	var d dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Vehicles, err = c.API.Vehicles(gctx, fleetapi.VehicleFilter{})
		return err
	})
	g.Go(func() (err error) {
		d.PendingMaintenance, err = c.API.MaintenanceRequests(gctx, fleetapi.MaintenanceFilter{Status: fleetapi.MaintenancePending})
		return err
	})
	g.Go(func() (err error) {
		d.PendingTransfers, err = c.API.Transfers(gctx, fleetapi.TransferPending)
		return err
	})
	if c.Navigate("/pending").Action == guard.Admit {
		g.Go(func() (err error) {
			d.PendingApprovals, err = c.API.PendingRequests(gctx)
			return err
		})
	} else {
		d.ApprovalsRestricted = true
	}
	if err := g.Wait(); err != nil {
		return err
	}

	active, inMaintenance := 0, 0
	for _, v := range d.Vehicles {
		switch v.Status {
		case fleetapi.VehicleActive:
			active++
		case fleetapi.VehicleInMaintenance:
			inMaintenance++
		}
	}
	approvals := fmt.Sprint(len(d.PendingApprovals))
	if d.ApprovalsRestricted {
		approvals = "-"
	}
	rows := [][]string{
		{"Vehicles", fmt.Sprint(len(d.Vehicles))},
		{"Active", fmt.Sprint(active)},
		{"In maintenance", fmt.Sprint(inMaintenance)},
		{"Pending maintenance", fmt.Sprint(len(d.PendingMaintenance))},
		{"Pending transfers", fmt.Sprint(len(d.PendingTransfers))},
		{"Awaiting approval", approvals},
	}
	if p := c.Session.Principal(); p != nil && !jsonOutput {
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s (%s)\n\n", p.DisplayName, strings.Join(p.Roles.Slice(), ", "))
	}
	return render(cmd.OutOrStdout(), d, []string{"", "COUNT"}, rows)
}

func init() {
	rootCmd.AddCommand(navCmd, openCmd, dashboardCmd)
}
