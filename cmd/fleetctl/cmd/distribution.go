package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/spf13/cobra"
)

const distributionRoute = "/distribution"

var (
	transferStatus  string
	transferVehicle int64
	transferFrom    int64
	transferTo      int64
	transferDate    string
)

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "List inter-branch transfers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return screen(cmd, distributionRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showTransfers(ctx, cmd, c, fleetapi.TransferStatus(transferStatus))
		})
	},
}

var transferGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one transfer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transferID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return screen(cmd, distributionRoute, func(ctx context.Context, c *fleetclient.Client) error {
			t, err := c.API.Transfer(ctx, transferID)
			if err != nil {
				return err
			}
			return renderTransfers(cmd, []fleetapi.Transfer{*t})
		})
	},
}

var transferCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Plan a transfer between branches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := fleetapi.TransferInput{VehicleID: transferVehicle, FromBranchID: transferFrom, ToBranchID: transferTo}
		if transferDate != "" {
			input.PlanDate = utils.Ptr(transferDate)
		}
		return screen(cmd, distributionRoute+"/new", func(ctx context.Context, c *fleetclient.Client) error {
			t, err := c.API.CreateTransfer(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Planned transfer %s: %s -> %s\n", id(t.ID), orDash(t.FromBranchName), orDash(t.ToBranchName))
			return nil
		})
	},
}

var transferStatusCmd = &cobra.Command{
	Use:       "status <id> <Approved|Rejected|Executed|Cancelled>",
	Short:     "Move a transfer to a new status",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(fleetapi.TransferApproved), string(fleetapi.TransferRejected), string(fleetapi.TransferExecuted), string(fleetapi.TransferCancelled)},
	RunE: func(cmd *cobra.Command, args []string) error {
		transferID, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := parseTransferStatus(args[1])
		if err != nil {
			return err
		}
		return screen(cmd, distributionRoute, func(ctx context.Context, c *fleetclient.Client) error {
			if allowed := transferDeciders[status]; allowed != nil && !c.Session.Principal().HasAnyRole(allowed...) {
				return fmt.Errorf("your role cannot mark a transfer %s", status)
			}
			if err := c.API.UpdateTransferStatus(ctx, transferID, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transfer %s %s\n", id(transferID), status)
			return nil
		})
	},
}

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Vehicle stock per branch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return screen(cmd, distributionRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showStock(ctx, cmd, c)
		})
	},
}

// transferDeciders lists who may move a transfer into each status. Statuses
// absent from the map are left to the server.
var transferDeciders = map[fleetapi.TransferStatus][]users.RoleType{
	fleetapi.TransferApproved: {users.RoleExecutiveManagement, users.RoleBranchAssetAccountant},
	fleetapi.TransferRejected: {users.RoleExecutiveManagement, users.RoleBranchAssetAccountant},
	fleetapi.TransferExecuted: {users.RoleOperator},
}

func parseTransferStatus(arg string) (fleetapi.TransferStatus, error) {
	for _, s := range []fleetapi.TransferStatus{fleetapi.TransferApproved, fleetapi.TransferRejected, fleetapi.TransferExecuted, fleetapi.TransferCancelled} {
		if strings.EqualFold(arg, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown transfer status %q", arg)
}

// showDistribution is the distribution screen: stock, then transfers.
func showDistribution(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error {
	if err := showStock(ctx, cmd, c); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return showTransfers(ctx, cmd, c, "")
}

func showStock(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client) error {
	stock, err := c.API.Stock(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(stock))
	for _, b := range stock {
		rows = append(rows, []string{
			id(b.BranchID), orDash(b.BranchName),
			fmt.Sprint(b.TotalVehicles), fmt.Sprint(b.ActiveVehicles), fmt.Sprint(b.InTransferVehicles),
		})
	}
	return render(cmd.OutOrStdout(), stock, []string{"BRANCH", "NAME", "TOTAL", "ACTIVE", "IN TRANSFER"}, rows)
}

func showTransfers(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client, status fleetapi.TransferStatus) error {
	transfers, err := c.API.Transfers(ctx, status)
	if err != nil {
		return err
	}
	return renderTransfers(cmd, transfers)
}

func renderTransfers(cmd *cobra.Command, transfers []fleetapi.Transfer) error {
	rows := make([][]string, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, []string{
			id(t.ID), orDash(t.LicensePlate), orDash(t.FromBranchName), orDash(t.ToBranchName), orDash(t.PlanDate), string(t.Status),
		})
	}
	return render(cmd.OutOrStdout(), transfers, []string{"ID", "VEHICLE", "FROM", "TO", "PLANNED", "STATUS"}, rows)
}

func init() {
	transfersCmd.Flags().StringVar(&transferStatus, "status", "", "filter by status (Pending, Approved, Rejected, Executed, Cancelled)")

	transferCreateCmd.Flags().Int64Var(&transferVehicle, "vehicle", 0, "vehicle id")
	transferCreateCmd.Flags().Int64Var(&transferFrom, "from", 0, "source branch id")
	transferCreateCmd.Flags().Int64Var(&transferTo, "to", 0, "destination branch id")
	transferCreateCmd.Flags().StringVar(&transferDate, "date", "", "planned date (YYYY-MM-DD)")
	for _, name := range []string{"vehicle", "from", "to"} {
		_ = transferCreateCmd.MarkFlagRequired(name)
	}

	transfersCmd.AddCommand(transferGetCmd, transferCreateCmd, transferStatusCmd)
	rootCmd.AddCommand(transfersCmd, stockCmd)
}
