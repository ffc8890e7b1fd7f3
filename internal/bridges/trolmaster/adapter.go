package trolmaster

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
)

// Adapter is the registered placeholder for Trolmaster hardware. It keeps
// the brand routable so callers get ErrNotImplemented rather than
// ErrUnknownBrand, and it enforces the credential tag the same way the
// live integrations do.
type Adapter struct{}

// New creates the Trolmaster placeholder adapter.
func New() *Adapter { return &Adapter{} }

// Brand returns BrandTrolmaster.
func (a *Adapter) Brand() controller.Brand { return controller.BrandTrolmaster }

// Implemented reports false so registry listings flag the brand as pending.
func (a *Adapter) Implemented() bool { return false }

// Connect rejects mis-tagged credentials first, then reports the
// integration as not implemented.
func (a *Adapter) Connect(_ context.Context, creds controller.Credentials) (*controller.ControllerMetadata, error) {
	if err := controller.CheckKind(controller.BrandTrolmaster, creds); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: trolmaster integration", controller.ErrNotImplemented)
}

// ReadSensors reports the integration as not implemented.
func (a *Adapter) ReadSensors(_ context.Context, _ string) ([]controller.SensorReading, error) {
	return nil, fmt.Errorf("%w: trolmaster integration", controller.ErrNotImplemented)
}

// ControlDevice never errors; the result reports the missing integration.
func (a *Adapter) ControlDevice(_ context.Context, _ string, _ int, _ controller.DeviceCommand) controller.CommandResult {
	return controller.CommandResult{
		Success:   false,
		Error:     "trolmaster integration is not implemented",
		Timestamp: time.Now(),
	}
}

// GetStatus reports offline; there is nothing to probe yet.
func (a *Adapter) GetStatus(_ context.Context, _ string) controller.ControllerStatus {
	return controller.ControllerStatus{IsOnline: false}
}

// Disconnect is a no-op; no sessions are ever created.
func (a *Adapter) Disconnect(_ context.Context, _ string) {}
