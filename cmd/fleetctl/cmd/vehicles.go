package cmd

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-fleet-admin/fleetapi"
	"github.com/jrsteele09/go-fleet-admin/fleetclient"
	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/spf13/cobra"
)

const vehiclesRoute = "/vehicles"

var (
	vehicleStatus  string
	vehicleBranch  int64
	vehiclePlate   string
	vehicleModel   int64
	vehicleYear    int
	vehicleMileage int64
	vehicleDriver  int64
	vehicleBought  string
	vehicleCost    float64
	vehicleValue   float64
)

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List vehicles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := fleetapi.VehicleFilter{Status: fleetapi.VehicleStatus(vehicleStatus)}
		if vehicleBranch > 0 {
			filter.BranchID = utils.Ptr(vehicleBranch)
		}
		return screen(cmd, vehiclesRoute, func(ctx context.Context, c *fleetclient.Client) error {
			return showVehicles(ctx, cmd, c, filter)
		})
	},
}

var vehicleGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vehicleID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return screen(cmd, vehiclesRoute, func(ctx context.Context, c *fleetclient.Client) error {
			v, err := c.API.Vehicle(ctx, vehicleID)
			if err != nil {
				return err
			}
			return renderVehicles(cmd, []fleetapi.Vehicle{*v})
		})
	},
}

var vehicleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a vehicle",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := vehicleInput(cmd)
		return screen(cmd, vehiclesRoute+"/new", func(ctx context.Context, c *fleetclient.Client) error {
			v, err := c.API.CreateVehicle(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created vehicle %s (%s)\n", id(v.ID), v.LicensePlate)
			return nil
		})
	},
}

var vehicleUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vehicleID, err := parseID(args[0])
		if err != nil {
			return err
		}
		input := vehicleInput(cmd)
		return screen(cmd, vehiclesRoute, func(ctx context.Context, c *fleetclient.Client) error {
			v, err := c.API.UpdateVehicle(ctx, vehicleID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated vehicle %s (%s)\n", id(v.ID), v.Status)
			return nil
		})
	},
}

// vehicleInput collects only the flags the user actually set.
func vehicleInput(cmd *cobra.Command) fleetapi.VehicleInput {
	in := fleetapi.VehicleInput{LicensePlate: vehiclePlate, Status: fleetapi.VehicleStatus(vehicleStatus)}
	flags := cmd.Flags()
	if flags.Changed("model") {
		in.ModelID = utils.Ptr(vehicleModel)
	}
	if flags.Changed("year") {
		in.YearManufacture = utils.Ptr(vehicleYear)
	}
	if flags.Changed("mileage") {
		in.Mileage = utils.Ptr(vehicleMileage)
	}
	if flags.Changed("driver") {
		in.CurrentDriverID = utils.Ptr(vehicleDriver)
	}
	if flags.Changed("purchased") {
		in.PurchaseDate = utils.Ptr(vehicleBought)
	}
	if flags.Changed("cost") {
		in.OriginalCost = utils.Ptr(vehicleCost)
	}
	if flags.Changed("value") {
		in.CurrentValue = utils.Ptr(vehicleValue)
	}
	return in
}

func showVehicles(ctx context.Context, cmd *cobra.Command, c *fleetclient.Client, filter fleetapi.VehicleFilter) error {
	vehicles, err := c.API.Vehicles(ctx, filter)
	if err != nil {
		return err
	}
	return renderVehicles(cmd, vehicles)
}

func renderVehicles(cmd *cobra.Command, vehicles []fleetapi.Vehicle) error {
	rows := make([][]string, 0, len(vehicles))
	for _, v := range vehicles {
		mileage := "-"
		if km := utils.ValueOr(v.Mileage, -1); km >= 0 {
			mileage = fmt.Sprint(km)
		}
		rows = append(rows, []string{
			id(v.ID), orDash(v.LicensePlate), orDash(v.Manufacturer), orDash(v.ModelName),
			mileage, orDash(v.CurrentDriverName), orDash(v.CurrentBranchName), string(v.Status),
		})
	}
	return render(cmd.OutOrStdout(), vehicles,
		[]string{"ID", "PLATE", "MAKE", "MODEL", "KM", "DRIVER", "BRANCH", "STATUS"}, rows)
}

func init() {
	vehiclesCmd.Flags().StringVar(&vehicleStatus, "status", "", "filter by status (Active, InMaintenance, InTransfer, Disposed)")
	vehiclesCmd.Flags().Int64Var(&vehicleBranch, "branch", 0, "filter by branch id")

	for _, c := range []*cobra.Command{vehicleCreateCmd, vehicleUpdateCmd} {
		c.Flags().StringVar(&vehiclePlate, "plate", "", "licence plate")
		c.Flags().StringVar(&vehicleStatus, "status", "", "status")
		c.Flags().Int64Var(&vehicleModel, "model", 0, "model id")
		c.Flags().IntVar(&vehicleYear, "year", 0, "year of manufacture")
		c.Flags().Int64Var(&vehicleMileage, "mileage", 0, "odometer in km")
		c.Flags().Int64Var(&vehicleDriver, "driver", 0, "current driver id")
		c.Flags().StringVar(&vehicleBought, "purchased", "", "purchase date (YYYY-MM-DD)")
		c.Flags().Float64Var(&vehicleCost, "cost", 0, "original cost")
		c.Flags().Float64Var(&vehicleValue, "value", 0, "current value")
		_ = c.MarkFlagRequired("plate")
	}

	vehiclesCmd.AddCommand(vehicleGetCmd, vehicleCreateCmd, vehicleUpdateCmd)
	rootCmd.AddCommand(vehiclesCmd)
}
