// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package format renders vehicle lookup results as Telegram Markdown.
package format

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/i18n"
)

// MaxFaults is the number of faults shown in a reply. The rest are omitted.
const MaxFaults = 20

const partSep = " — "

// Reply renders the lookup result for the truck the user asked for as label.
// The advice block is included if advice is not empty.
func Reply(msgs i18n.Messages, label string, v fleet.Vehicle, f fleet.Faults, advice string) string {
	header := []string{bold(msgs.Truck) + " " + Text(label)}
	if v.VIN != "" {
		header = append(header, bold(msgs.VIN)+" "+Text(v.VIN))
	}
	if v.LicensePlate != "" {
		header = append(header, bold(msgs.Plate)+" "+Text(v.LicensePlate))
	}
	lines := []string{strings.Join(header, "\n")}

	if f.CheckEngine != nil {
		if flags := f.CheckEngine.Flags(); len(flags) > 0 {
			lines = append(lines, "\n"+bold(msgs.CheckEngine)+" "+strings.Join(flags, ", "))
		}
	}

	if len(f.Records) == 0 {
		lines = append(lines, "\n"+msgs.NoFaults)
	} else {
		lines = append(lines, "\n"+bold(msgs.ActiveFaults))
		for i, r := range f.Records[:min(len(f.Records), MaxFaults)] {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, Fault(msgs, r)))
		}
	}

	if advice = strings.TrimSpace(advice); advice != "" {
		lines = append(lines, "\n"+bold(msgs.Advice)+"\n"+Text(advice))
	}

	return strings.Join(lines, "\n")
}

// Fault renders a single fault record as one line.
func Fault(msgs i18n.Messages, r fleet.FaultRecord) string {
	if r.IsEmpty() {
		return msgs.UnknownFault
	}
	var parts []string
	if r.Code != "" {
		parts = append(parts, fmt.Sprintf(msgs.Codef, Code(r.Code)))
	}
	if r.Short != "" {
		parts = append(parts, Text(r.Short))
	}
	if r.Text != "" {
		parts = append(parts, Text(r.Text))
	}
	if r.OccurrenceCount != nil {
		parts = append(parts, fmt.Sprintf(msgs.Occurrencesf, *r.OccurrenceCount))
	}
	return strings.Join(parts, partSep)
}

func bold(label string) string { return "*" + label + ":*" }

// Text escapes s for use outside of entities in a Markdown message. Anything
// that comes from users, Samsara or a language model goes through it.
func Text(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

// Code prepares s for use inside a `code` span, where escaping doesn't work
// and only a backtick can end the entity.
func Code(s string) string { return strings.ReplaceAll(s, "`", "'") }
