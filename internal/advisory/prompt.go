// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package advisory

import (
	"fmt"
	"strings"

	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/format"
	"go.astrophena.name/truckdoc/internal/i18n"
)

// proprietaryMarker appears in Samsara descriptions of codes whose meaning is
// defined by the manufacturer.
const proprietaryMarker = "proprietary"

const systemPrompt = "You are an experienced heavy truck diagnostic technician. " +
	"You explain diagnostic trouble codes to fleet dispatchers and drivers in plain language."

// IsProprietary reports whether r is a manufacturer proprietary code.
func IsProprietary(r fleet.FaultRecord) bool {
	for _, s := range []string{r.Short, r.Text} {
		if strings.Contains(strings.ToLower(s), proprietaryMarker) {
			return true
		}
	}
	return false
}

// BuildPrompt returns the prompt asking a model to explain the faults of r.
// Only the faults shown to the user are included.
func BuildPrompt(r Request) string {
	msgs := i18n.For(r.Lang)

	var sb strings.Builder
	sb.WriteString("A truck reports the following active diagnostic trouble codes.\n\n")

	fmt.Fprintf(&sb, "Truck: %s\n", r.Label)
	if r.Vehicle.Name != "" && r.Vehicle.Name != r.Label {
		fmt.Fprintf(&sb, "Name: %s\n", r.Vehicle.Name)
	}
	if r.Vehicle.VIN != "" {
		fmt.Fprintf(&sb, "VIN: %s\n", r.Vehicle.VIN)
	}

	sb.WriteString("\nCodes:\n")
	var proprietary bool
	for i, f := range r.Faults[:min(len(r.Faults), format.MaxFaults)] {
		fmt.Fprintf(&sb, "%d. [%s] %s", i+1, f.Source, describe(f))
		if IsProprietary(f) {
			proprietary = true
			fmt.Fprintf(&sb, " (%s)", msgs.ProprietaryTag)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nFor each code, briefly explain what it most likely means, how urgent it is " +
		"and what the driver or mechanic should check first. Keep the answer short and practical. " +
		"Don't use Markdown tables or headings.\n")
	if proprietary {
		fmt.Fprintf(&sb, "Codes marked \"%s\" are manufacturer proprietary: say that their exact "+
			"interpretation is unreliable without the manufacturer's documentation, "+
			"and still give generic guidance for them.\n", msgs.ProprietaryTag)
	}
	sb.WriteString(msgs.AdvicePrompt)

	return sb.String()
}

func describe(f fleet.FaultRecord) string {
	var parts []string
	if f.Code != "" {
		parts = append(parts, "code "+f.Code)
	}
	if f.Short != "" {
		parts = append(parts, f.Short)
	}
	if f.Text != "" {
		parts = append(parts, f.Text)
	}
	if f.OccurrenceCount != nil {
		parts = append(parts, fmt.Sprintf("occurred %d times", *f.OccurrenceCount))
	}
	if len(parts) == 0 {
		return "unknown fault"
	}
	return strings.Join(parts, "; ")
}
