package fleetapi

import (
	"errors"
	"fmt"
)

type VehicleStatus string

const (
	VehicleActive        VehicleStatus = "Active"
	VehicleInMaintenance VehicleStatus = "InMaintenance"
	VehicleInTransfer    VehicleStatus = "InTransfer"
	VehicleDisposed      VehicleStatus = "Disposed"
)

type MaintenanceType string

const (
	MaintenanceRoutine   MaintenanceType = "Routine"
	MaintenanceEmergency MaintenanceType = "Emergency"
	MaintenanceRepair    MaintenanceType = "Repair"
)

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceApproved   MaintenanceStatus = "Approved"
	MaintenanceRejected   MaintenanceStatus = "Rejected"
	MaintenanceInProgress MaintenanceStatus = "InProgress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferApproved  TransferStatus = "Approved"
	TransferRejected  TransferStatus = "Rejected"
	TransferExecuted  TransferStatus = "Executed"
	TransferCancelled TransferStatus = "Cancelled"
)

// DateLayout is the calendar date format the API uses.
const DateLayout = "2006-01-02"

// Vehicle is a fleet asset.
type Vehicle struct {
	ID                int64         `json:"id"`
	LicensePlate      string        `json:"licensePlate"`
	Manufacturer      string        `json:"manufacturer,omitempty"`
	ModelID           *int64        `json:"modelId,omitempty"`
	ModelName         string        `json:"modelName,omitempty"`
	YearManufacture   *int          `json:"yearManufacture,omitempty"`
	PurchaseDate      string        `json:"purchaseDate,omitempty"`
	OriginalCost      *float64      `json:"originalCost,omitempty"`
	CurrentValue      *float64      `json:"currentValue,omitempty"`
	Mileage           *int64        `json:"mileage,omitempty"`
	Status            VehicleStatus `json:"status"`
	CurrentDriverID   *int64        `json:"currentDriverId,omitempty"`
	CurrentDriverName string        `json:"currentDriverName,omitempty"`
	CurrentBranchID   *int64        `json:"currentBranchId,omitempty"`
	CurrentBranchName string        `json:"currentBranchName,omitempty"`
}

// VehicleInput is the create/update payload for a vehicle.
type VehicleInput struct {
	LicensePlate    string        `json:"licensePlate"`
	ModelID         *int64        `json:"modelId,omitempty"`
	YearManufacture *int          `json:"yearManufacture,omitempty"`
	PurchaseDate    *string       `json:"purchaseDate"`
	OriginalCost    *float64      `json:"originalCost,omitempty"`
	CurrentValue    *float64      `json:"currentValue,omitempty"`
	Mileage         *int64        `json:"mileage,omitempty"`
	Status          VehicleStatus `json:"status,omitempty"`
	CurrentDriverID *int64        `json:"currentDriverId,omitempty"`
}

func (v VehicleInput) Validate() error {
	if v.LicensePlate == "" {
		return errors.New("license plate is required")
	}
	return nil
}

// VehicleFilter narrows the vehicle list. Zero values are not sent.
type VehicleFilter struct {
	Status   VehicleStatus
	BranchID *int64
}

// MaintenanceRequest is a request to service a vehicle.
type MaintenanceRequest struct {
	ID              int64             `json:"id"`
	VehicleID       int64             `json:"vehicleId"`
	LicensePlate    string            `json:"licensePlate,omitempty"`
	MaintenanceType MaintenanceType   `json:"maintenanceType"`
	Description     string            `json:"description,omitempty"`
	EstimatedCost   *float64          `json:"estimatedCost,omitempty"`
	RequestDate     string            `json:"requestDate,omitempty"`
	ApprovedDate    string            `json:"approvedDate,omitempty"`
	Status          MaintenanceStatus `json:"status"`
}

// MaintenanceInput is the create/update payload for a maintenance request.
type MaintenanceInput struct {
	VehicleID       int64           `json:"vehicleId"`
	MaintenanceType MaintenanceType `json:"maintenanceType"`
	RequestDate     *string         `json:"requestDate"`
	EstimatedCost   *float64        `json:"estimatedCost,omitempty"`
	Description     string          `json:"description,omitempty"`
}

func (m MaintenanceInput) Validate() error {
	if m.VehicleID <= 0 {
		return errors.New("vehicle id is required")
	}
	switch m.MaintenanceType {
	case MaintenanceRoutine, MaintenanceEmergency, MaintenanceRepair:
		return nil
	}
	return fmt.Errorf("unknown maintenance type %q", m.MaintenanceType)
}

// MaintenanceFilter narrows the maintenance list. Zero values are not sent.
type MaintenanceFilter struct {
	Status MaintenanceStatus
	Type   MaintenanceType
}

type approval struct {
	Status       MaintenanceStatus `json:"status"`
	ApprovedDate string            `json:"approvedDate"`
}

// BranchStock is the vehicle count summary for one branch.
type BranchStock struct {
	BranchID           int64  `json:"branchId"`
	BranchName         string `json:"branchName"`
	TotalVehicles      int    `json:"totalVehicles"`
	ActiveVehicles     int    `json:"activeVehicles"`
	InTransferVehicles int    `json:"inTransferVehicles"`
}

// Transfer is a planned move of a vehicle between branches.
type Transfer struct {
	ID             int64          `json:"id"`
	VehicleID      int64          `json:"vehicleId"`
	LicensePlate   string         `json:"licensePlate,omitempty"`
	FromBranchID   int64          `json:"fromBranchId"`
	FromBranchName string         `json:"fromBranchName,omitempty"`
	ToBranchID     int64          `json:"toBranchId"`
	ToBranchName   string         `json:"toBranchName,omitempty"`
	PlanDate       string         `json:"planDate,omitempty"`
	Status         TransferStatus `json:"status"`
}

// TransferInput is the payload for planning a transfer.
type TransferInput struct {
	VehicleID    int64   `json:"vehicleId"`
	FromBranchID int64   `json:"fromBranchId"`
	ToBranchID   int64   `json:"toBranchId"`
	PlanDate     *string `json:"planDate"`
}

func (t TransferInput) Validate() error {
	switch {
	case t.VehicleID <= 0:
		return errors.New("vehicle id is required")
	case t.FromBranchID <= 0 || t.ToBranchID <= 0:
		return errors.New("source and destination branch are required")
	case t.FromBranchID == t.ToBranchID:
		return errors.New("source and destination branch must differ")
	}
	return nil
}

type transferStatusUpdate struct {
	Status TransferStatus `json:"status"`
}

// PendingRequest is an item awaiting executive approval.
type PendingRequest struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	ProposerName string `json:"proposerName,omitempty"`
	RequestDate  string `json:"requestDate,omitempty"`
	Status       string `json:"status"`
}

// Profile is the signed-in user's account details.
type Profile struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	BranchName    string   `json:"branchName,omitempty"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"emailVerified"`
}
