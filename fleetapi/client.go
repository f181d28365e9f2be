package fleetapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-fleet-admin/internal/utils"
	"github.com/jrsteele09/go-fleet-admin/transport"
	pkgerrors "github.com/pkg/errors"
)

const (
	pathVehicles    = "/assets/vehicles"
	pathMaintenance = "/maintenance-requests"
	pathStock       = "/distribution/stock"
	pathTransfers   = "/distribution/transfers"
	pathPending     = "/pending-requests"
	pathProfile     = "/user/profile"
)

// NowTimeFunc is used to date approvals.
var NowTimeFunc = time.Now

// Client calls the business endpoints through an authorised Sender.
type Client struct {
	sender Sender
}

// NewClient creates a Client.
func NewClient(sender Sender) (*Client, error) {
	if sender == nil {
		return nil, errors.New("[NewClient] sender is required")
	}
	return &Client{sender: sender}, nil
}

func (c *Client) Vehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error) {
	q := url.Values{"status": {string(filter.Status)}, "branchId": {utils.Int64String(filter.BranchID)}}

	var vehicles []Vehicle
	if err := call(ctx, c.sender, transport.Get(pathVehicles).WithQuery(q), &vehicles); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.Vehicles]")
	}
	return vehicles, nil
}

func (c *Client) Vehicle(ctx context.Context, id int64) (*Vehicle, error) {
	var v Vehicle
	if err := call(ctx, c.sender, transport.Get(idPath(pathVehicles, id)), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "[Client.Vehicle] %d", id)
	}
	return &v, nil
}

func (c *Client) CreateVehicle(ctx context.Context, input VehicleInput) (*Vehicle, error) {
	if err := input.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.CreateVehicle]")
	}
	var v Vehicle
	if err := call(ctx, c.sender, transport.Post(pathVehicles, input), &v); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.CreateVehicle]")
	}
	return &v, nil
}

func (c *Client) UpdateVehicle(ctx context.Context, id int64, input VehicleInput) (*Vehicle, error) {
	if err := input.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.UpdateVehicle]")
	}
	var v Vehicle
	if err := call(ctx, c.sender, transport.Put(idPath(pathVehicles, id), input), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "[Client.UpdateVehicle] %d", id)
	}
	return &v, nil
}

func (c *Client) MaintenanceRequests(ctx context.Context, filter MaintenanceFilter) ([]MaintenanceRequest, error) {
	q := url.Values{"status": {string(filter.Status)}, "type": {string(filter.Type)}}

	var requests []MaintenanceRequest
	if err := call(ctx, c.sender, transport.Get(pathMaintenance).WithQuery(q), &requests); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.MaintenanceRequests]")
	}
	return requests, nil
}

// MaintenanceRequest fetches one request; includeDeleted also finds
// soft-deleted ones.
func (c *Client) MaintenanceRequest(ctx context.Context, id int64, includeDeleted bool) (*MaintenanceRequest, error) {
	q := url.Values{"includeDeleted": {strconv.FormatBool(includeDeleted)}}

	var m MaintenanceRequest
	if err := call(ctx, c.sender, transport.Get(idPath(pathMaintenance, id)).WithQuery(q), &m); err != nil {
		return nil, pkgerrors.Wrapf(err, "[Client.MaintenanceRequest] %d", id)
	}
	return &m, nil
}

func (c *Client) CreateMaintenanceRequest(ctx context.Context, input MaintenanceInput) (*MaintenanceRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.CreateMaintenanceRequest]")
	}
	var m MaintenanceRequest
	if err := call(ctx, c.sender, transport.Post(pathMaintenance, input), &m); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.CreateMaintenanceRequest]")
	}
	return &m, nil
}

func (c *Client) UpdateMaintenanceRequest(ctx context.Context, id int64, input MaintenanceInput) (*MaintenanceRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.UpdateMaintenanceRequest]")
	}
	var m MaintenanceRequest
	if err := call(ctx, c.sender, transport.Put(idPath(pathMaintenance, id), input), &m); err != nil {
		return nil, pkgerrors.Wrapf(err, "[Client.UpdateMaintenanceRequest] %d", id)
	}
	return &m, nil
}

// DecideMaintenanceRequest approves or rejects a request, dated today.
func (c *Client) DecideMaintenanceRequest(ctx context.Context, id int64, status MaintenanceStatus) error {
	if status != MaintenanceApproved && status != MaintenanceRejected {
		return fmt.Errorf("[Client.DecideMaintenanceRequest] status must be %s or %s", MaintenanceApproved, MaintenanceRejected)
	}
	body := approval{Status: status, ApprovedDate: NowTimeFunc().Format(DateLayout)}
	if err := call(ctx, c.sender, transport.Patch(idPath(pathMaintenance, id)+"/approval", body), nil); err != nil {
		return pkgerrors.Wrapf(err, "[Client.DecideMaintenanceRequest] %d", id)
	}
	return nil
}

func (c *Client) DeleteMaintenanceRequest(ctx context.Context, id int64) error {
	if err := call(ctx, c.sender, transport.Delete(idPath(pathMaintenance, id)), nil); err != nil {
		return pkgerrors.Wrapf(err, "[Client.DeleteMaintenanceRequest] %d", id)
	}
	return nil
}

func (c *Client) Stock(ctx context.Context) ([]BranchStock, error) {
	var stock []BranchStock
	if err := call(ctx, c.sender, transport.Get(pathStock), &stock); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.Stock]")
	}
	return stock, nil
}

func (c *Client) Transfers(ctx context.Context, status TransferStatus) ([]Transfer, error) {
	q := url.Values{"status": {string(status)}}

	var transfers []Transfer
	if err := call(ctx, c.sender, transport.Get(pathTransfers).WithQuery(q), &transfers); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.Transfers]")
	}
	return transfers, nil
}

func (c *Client) Transfer(ctx context.Context, id int64) (*Transfer, error) {
	var t Transfer
	if err := call(ctx, c.sender, transport.Get(idPath(pathTransfers, id)), &t); err != nil {
		return nil, pkgerrors.Wrapf(err, "[Client.Transfer] %d", id)
	}
	return &t, nil
}

func (c *Client) CreateTransfer(ctx context.Context, input TransferInput) (*Transfer, error) {
	if err := input.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.CreateTransfer]")
	}
	var t Transfer
	if err := call(ctx, c.sender, transport.Post(pathTransfers, input), &t); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.CreateTransfer]")
	}
	return &t, nil
}

func (c *Client) UpdateTransferStatus(ctx context.Context, id int64, status TransferStatus) error {
	body := transferStatusUpdate{Status: status}
	if err := call(ctx, c.sender, transport.Put(idPath(pathTransfers, id)+"/status", body), nil); err != nil {
		return pkgerrors.Wrapf(err, "[Client.UpdateTransferStatus] %d", id)
	}
	return nil
}

func (c *Client) PendingRequests(ctx context.Context) ([]PendingRequest, error) {
	var pending []PendingRequest
	if err := call(ctx, c.sender, transport.Get(pathPending), &pending); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.PendingRequests]")
	}
	return pending, nil
}

func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := call(ctx, c.sender, transport.Get(pathProfile), &p); err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.Profile]")
	}
	return &p, nil
}

func idPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}
