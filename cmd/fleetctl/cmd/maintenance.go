package cmd

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/jrsteele09/go-fleet-admin/users"
	"github.com/spf13/cobra"
)

const maintenanceRoute = "/maintenance"

var (
	maintenanceStatus      string
	maintenanceType        string
	maintenanceVehicle     int64
	maintenanceDescription string
	maintenanceCost        float64
	maintenanceDate        string
	includeDeleted         bool
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "List maintenance requests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := fleetapi.MaintenanceFilter{
			Status: fleetapi.MaintenanceStatus(maintenanceStatus),
			Type:   fleetapi.MaintenanceType(maintenanceType),
		}
		return screen(cmd, maintenanceRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showMaintenance(ctx, cmd, c, filter)
		})
	},
}

var maintenanceGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one maintenance request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return screen(cmd, maintenanceRoute, func(ctx context.Context, c *fleetclient.Client) error {
			m, err := c.API.MaintenanceRequest(ctx, requestID, includeDeleted)
			if err != nil {
				return err
			}
			return renderMaintenance(cmd, []fleetapi.MaintenanceRequest{*m})
		})
	},
}

var maintenanceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Raise a maintenance request",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := maintenanceInput(cmd)
		return screen(cmd, maintenanceRoute+"/new", func(ctx context.Context, c *fleetclient.Client) error {
			m, err := c.API.CreateMaintenanceRequest(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created maintenance request %s\n", id(m.ID))
			return nil
		})
	},
}

var maintenanceUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a maintenance request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID, err := parseID(args[0])
		if err != nil {
			return err
		}
		input := maintenanceInput(cmd)
		return screen(cmd, maintenanceRoute, func(ctx context.Context, c *fleetclient.Client) error {
			if _, err := c.API.UpdateMaintenanceRequest(ctx, requestID, input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated maintenance request %s\n", id(requestID))
			return nil
		})
	},
}

func maintenanceDecisionCmd(use string, status fleetapi.MaintenanceStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark a maintenance request %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return screen(cmd, maintenanceRoute, func(ctx context.Context, c *fleetclient.Client) error {
				if !c.Session.Principal().HasRole(users.RoleBranchAssetAccountant) {
					return fmt.Errorf("only %s can decide maintenance requests", users.RoleBranchAssetAccountant)
				}
				if err := c.API.DecideMaintenanceRequest(ctx, requestID, status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Maintenance request %s %s\n", id(requestID), status)
				return nil
			})
		},
	}
}

var maintenanceDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a maintenance request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return screen(cmd, maintenanceRoute, func(ctx context.Context, c *fleetclient.Client) error {
			if err := c.API.DeleteMaintenanceRequest(ctx, requestID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted maintenance request %s\n", id(requestID))
			return nil
		})
	},
}

func maintenanceInput(cmd *cobra.Command) fleetapi.MaintenanceInput {
	in := fleetapi.MaintenanceInput{
		VehicleID:       maintenanceVehicle,
		MaintenanceType: fleetapi.MaintenanceType(maintenanceType),
		Description:     maintenanceDescription,
	}
	if cmd.Flags().Changed("cost") {
		in.EstimatedCost = utils.Ptr(maintenanceCost)
	}
	if maintenanceDate != "" {
		in.RequestDate = utils.Ptr(maintenanceDate)
	}
	return in
}

func showMaintenance(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client, filter fleetapi.MaintenanceFilter) error {
	requests, err := c.API.MaintenanceRequests(ctx, filter)
	if err != nil {
		return err
	}
	return renderMaintenance(cmd, requests)
}

func renderMaintenance(cmd *cobra.Command, requests []fleetapi.MaintenanceRequest) error {
	rows := make([][]string, 0, len(requests))
	for _, m := range requests {
		rows = append(rows, []string{
			id(m.ID), orDash(m.LicensePlate), string(m.MaintenanceType), orDash(m.Description),
			money(m.EstimatedCost), orDash(m.RequestDate), string(m.Status),
		})
	}
	return render(cmd.OutOrStdout(), requests,
		[]string{"ID", "VEHICLE", "TYPE", "DESCRIPTION", "EST. COST", "REQUESTED", "STATUS"}, rows)
}

func init() {
	maintenanceCmd.Flags().StringVar(&maintenanceStatus, "status", "", "filter by status (Pending, Approved, Rejected, InProgress, Completed)")
	maintenanceCmd.Flags().StringVar(&maintenanceType, "type", "", "filter by type (Routine, Emergency, Repair)")
	maintenanceGetCmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "also find deleted requests")

	for _, c := range []*cobra.Command{maintenanceCreateCmd, maintenanceUpdateCmd} {
		c.Flags().Int64Var(&maintenanceVehicle, "vehicle", 0, "vehicle id")
		c.Flags().StringVar(&maintenanceType, "type", "", "Routine, Emergency or Repair")
		c.Flags().StringVar(&maintenanceDescription, "description", "", "what needs doing")
		c.Flags().Float64Var(&maintenanceCost, "cost", 0, "estimated cost")
		c.Flags().StringVar(&maintenanceDate, "date", "", "request date (YYYY-MM-DD)")
		_ = c.MarkFlagRequired("vehicle")
		_ = c.MarkFlagRequired("type")
	}

	maintenanceCmd.AddCommand(
		maintenanceGetCmd,
		maintenanceCreateCmd,
		maintenanceUpdateCmd,
		maintenanceDecisionCmd("approve", fleetapi.MaintenanceApproved),
		maintenanceDecisionCmd("reject", fleetapi.MaintenanceRejected),
		maintenanceDeleteCmd,
	)
	rootCmd.AddCommand(maintenanceCmd)
}
