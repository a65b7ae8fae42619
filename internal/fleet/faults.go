// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package fleet

import (
	"context"
	"strconv"

	"go.astrophena.name/truckdoc/internal/api/samsara"
)

// Source identifies the diagnostic schema a fault came from.
type Source string

const (
	// J1939 is the heavy-duty schema.
	J1939 Source = "j1939"
	// Passenger is the light-duty (OBD-II) schema.
	Passenger Source = "passenger"
)

// FaultRecord is a normalized diagnostic trouble code. Empty strings and a
// nil OccurrenceCount stand for missing values.
type FaultRecord struct {
	Source          Source
	Code            string
	Short           string
	Text            string
	OccurrenceCount *int
}

// IsEmpty reports whether r carries no displayable information.
func (r FaultRecord) IsEmpty() bool {
	return r.Code == "" && r.Short == "" && r.Text == "" && r.OccurrenceCount == nil
}

// CheckEngineStatus holds the check engine lamp state of one schema.
type CheckEngineStatus struct {
	Source    Source
	Warning   bool
	Emissions bool
	Protect   bool
	Stop      bool
	On        bool
}

// Flags returns names of lit lamps in a fixed order.
func (s CheckEngineStatus) Flags() []string {
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{s.Warning, "Warning"},
		{s.Emissions, "Emissions"},
		{s.Protect, "Protect"},
		{s.Stop, "Stop"},
		{s.On, "Check Engine"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	return flags
}

// Faults is the diagnostic state of a vehicle.
type Faults struct {
	Records     []FaultRecord
	CheckEngine *CheckEngineStatus
}

// Faults returns the diagnostic state of the vehicle with the given ID.
//
// Samsara can't filter the maintenance list, so the whole fleet is fetched.
// A vehicle missing from the list has no faults.
func (r *Resolver) Faults(ctx context.Context, vehicleID string) (Faults, error) {
	vehicles, err := r.listMaintenance(ctx)
	if err != nil {
		return Faults{}, err
	}
	for _, v := range vehicles {
		if string(v.ID) == vehicleID {
			return Normalize(v), nil
		}
	}
	return Faults{}, nil
}

// Normalize converts a maintenance entry into Faults. Heavy-duty records go
// first. If both schemas report a check engine lamp, the passenger one is
// kept.
func Normalize(v samsara.MaintenanceVehicle) Faults {
	var f Faults

	if h := v.J1939; h != nil {
		if cel := h.CheckEngineLight; cel != nil {
			f.CheckEngine = checkEngineFrom(J1939, cel)
		}
		for _, dtc := range h.DiagnosticTroubleCodes {
			code := dtc.SPNID
			if code == nil {
				code = dtc.TxID
			}
			f.Records = append(f.Records, FaultRecord{
				Source:          J1939,
				Code:            formatCode(code),
				Short:           dtc.SPNDescription,
				Text:            dtc.FMIText,
				OccurrenceCount: dtc.OccurrenceCount,
			})
		}
	}

	if p := v.Passenger; p != nil {
		if cel := p.CheckEngineLight; cel != nil {
			f.CheckEngine = checkEngineFrom(Passenger, cel)
		}
		for _, dtc := range p.DiagnosticTroubleCodes {
			f.Records = append(f.Records, FaultRecord{
				Source: Passenger,
				Code:   dtc.DTCShortCode,
				Short:  dtc.DTCDescription,
			})
		}
	}

	return f
}

func checkEngineFrom(src Source, cel *samsara.CheckEngineLight) *CheckEngineStatus {
	return &CheckEngineStatus{
		Source:    src,
		Warning:   cel.WarningIsOn,
		Emissions: cel.EmissionsIsOn,
		Protect:   cel.ProtectIsOn,
		Stop:      cel.StopIsOn,
		On:        cel.IsOn,
	}
}

func formatCode(code *int64) string {
	if code == nil {
		return ""
	}
	return strconv.FormatInt(*code, 10)
}
