// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package samsara provides a very minimal client for the read-only parts of
// the Samsara fleet API that the bot needs.
package samsara

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.astrophena.name/truckdoc/internal/request"
)

// DefaultBaseURL is the Samsara API endpoint.
const DefaultBaseURL = "https://api.samsara.com"

// VehicleLimit is the page size requested from the vehicle list endpoint.
// Only the first page is read.
const VehicleLimit = 512

// ErrNoAPIKey is returned when the client has no API key.
var ErrNoAPIKey = errors.New("samsara: API key is not set")

// Client holds configuration for interacting with the Samsara API.
type Client struct {
	// APIKey is the API token used for authentication.
	APIKey string
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

// ID is an identifier that Samsara encodes either as a JSON string or as a
// JSON number depending on the endpoint.
type ID string

// UnmarshalJSON implements [json.Unmarshaler].
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Vehicle is an entry of the fleet vehicle list.
type Vehicle struct {
	ID           ID            `json:"id"`
	Name         string        `json:"name"`
	LicensePlate string        `json:"licensePlate"`
	VIN          string        `json:"vin"`
	ExternalIDs  map[string]ID `json:"externalIds"`
}

// MaintenanceVehicle is the diagnostic snapshot of one vehicle.
type MaintenanceVehicle struct {
	ID        ID         `json:"id"`
	J1939     *J1939     `json:"j1939"`
	Passenger *Passenger `json:"passenger"`
}

// J1939 holds heavy-duty diagnostics.
type J1939 struct {
	CheckEngineLight       *CheckEngineLight  `json:"checkEngineLight"`
	DiagnosticTroubleCodes []J1939TroubleCode `json:"diagnosticTroubleCodes"`
}

// Passenger holds light-duty diagnostics.
type Passenger struct {
	CheckEngineLight       *CheckEngineLight      `json:"checkEngineLight"`
	DiagnosticTroubleCodes []PassengerTroubleCode `json:"diagnosticTroubleCodes"`
}

// CheckEngineLight is the union of the J1939 and passenger lamp objects.
// J1939 vehicles report the first four fields, passenger vehicles IsOn.
type CheckEngineLight struct {
	WarningIsOn   bool `json:"warningIsOn"`
	EmissionsIsOn bool `json:"emissionsIsOn"`
	ProtectIsOn   bool `json:"protectIsOn"`
	StopIsOn      bool `json:"stopIsOn"`
	IsOn          bool `json:"isOn"`
}

// J1939TroubleCode is a heavy-duty diagnostic trouble code.
type J1939TroubleCode struct {
	SPNID           *int64 `json:"spnId"`
	TxID            *int64 `json:"txId"`
	SPNDescription  string `json:"spnDescription"`
	FMIID           *int64 `json:"fmiId"`
	FMIText         string `json:"fmiText"`
	OccurrenceCount *int   `json:"occurrenceCount"`
}

// PassengerTroubleCode is a light-duty (OBD-II) diagnostic trouble code.
type PassengerTroubleCode struct {
	DTCID          *int64 `json:"dtcId"`
	DTCShortCode   string `json:"dtcShortCode"`
	DTCDescription string `json:"dtcDescription"`
}

// ListVehicles returns the first page (up to [VehicleLimit] entries) of the
// fleet vehicle list.
func (c *Client) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	resp, err := get[struct {
		Data []Vehicle `json:"data"`
	}](ctx, c, "/fleet/vehicles?limit="+strconv.Itoa(VehicleLimit))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListMaintenance returns diagnostic snapshots for the whole fleet. The
// endpoint can't be filtered by vehicle.
func (c *Client) ListMaintenance(ctx context.Context) ([]MaintenanceVehicle, error) {
	resp, err := get[struct {
		Vehicles []MaintenanceVehicle `json:"vehicles"`
	}](ctx, c, "/v1/fleet/maintenance/list")
	if err != nil {
		return nil, err
	}
	return resp.Vehicles, nil
}

func get[Response any](ctx context.Context, c *Client, path string) (Response, error) {
	if c.APIKey == "" {
		var zero Response
		return zero, ErrNoAPIKey
	}
	baseURL := DefaultBaseURL
	if c.BaseURL != "" {
		baseURL = strings.TrimSuffix(c.BaseURL, "/")
	}
	return request.Make[Response](ctx, request.Params{
		Method: http.MethodGet,
		URL:    baseURL + path,
		Bearer: c.APIKey,
		Headers: map[string]string{
			"Accept": "application/json",
		},
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
}
