// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package fleet resolves trucks by free-form user input and normalizes their
// diagnostic trouble codes reported by Samsara.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.astrophena.name/truckdoc/internal/api/samsara"
	"go.astrophena.name/truckdoc/internal/metrics"
	"go.astrophena.name/truckdoc/internal/request"
	"go.astrophena.name/truckdoc/internal/telemetry"
)

// ErrNotConfigured is returned when the Samsara API key is missing.
var ErrNotConfigured = errors.New("fleet: Samsara API key is not set")

// UpstreamError is returned when Samsara responds with a non-success status.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fleet: %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Resolver finds vehicles and their faults. It fetches fresh data from
// Samsara on every call and keeps no state.
type Resolver struct {
	Client *samsara.Client
}

// Vehicle is a vehicle of the fleet.
type Vehicle struct {
	ID           string
	Name         string
	LicensePlate string
	VIN          string
	ExternalIDs  map[string]string
}

func vehicleFrom(v samsara.Vehicle) Vehicle {
	fv := Vehicle{
		ID:           string(v.ID),
		Name:         v.Name,
		LicensePlate: v.LicensePlate,
		VIN:          v.VIN,
	}
	if len(v.ExternalIDs) > 0 {
		fv.ExternalIDs = make(map[string]string, len(v.ExternalIDs))
		for k, id := range v.ExternalIDs {
			fv.ExternalIDs[k] = string(id)
		}
	}
	return fv
}

const (
	opListVehicles    = "list_vehicles"
	opListMaintenance = "list_maintenance"
)

func (r *Resolver) listVehicles(ctx context.Context) ([]samsara.Vehicle, error) {
	if r.Client == nil {
		return nil, ErrNotConfigured
	}
	ctx, span := telemetry.StartFleetSpan(ctx, opListVehicles)
	start := time.Now()
	vs, err := r.Client.ListVehicles(ctx)
	metrics.ObserveUpstream(opListVehicles, start)
	err = mapError(opListVehicles, err)
	telemetry.End(span, err)
	return vs, err
}

func (r *Resolver) listMaintenance(ctx context.Context) ([]samsara.MaintenanceVehicle, error) {
	if r.Client == nil {
		return nil, ErrNotConfigured
	}
	ctx, span := telemetry.StartFleetSpan(ctx, opListMaintenance)
	start := time.Now()
	vs, err := r.Client.ListMaintenance(ctx)
	metrics.ObserveUpstream(opListMaintenance, start)
	err = mapError(opListMaintenance, err)
	telemetry.End(span, err)
	return vs, err
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, samsara.ErrNoAPIKey) {
		return ErrNotConfigured
	}
	var se *request.StatusError
	if errors.As(err, &se) {
		return &UpstreamError{
			Op:         op,
			StatusCode: se.StatusCode,
			Body:       strings.TrimSpace(string(se.Body)),
		}
	}
	return fmt.Errorf("fleet: %s: %w", op, err)
}
