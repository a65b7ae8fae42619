// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package format

import (
	"fmt"
	"strings"
	"testing"

	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/i18n"
	"go.astrophena.name/truckdoc/internal/testutil"
)

func TestReply(t *testing.T) {
	t.Parallel()

	three := 3
	ru := i18n.For(i18n.Russian)
	en := i18n.For(i18n.English)

	cases := map[string]struct {
		msgs   i18n.Messages
		label  string
		v      fleet.Vehicle
		f      fleet.Faults
		advice string
		want   string
	}{
		"no faults": {
			msgs:  ru,
			label: "1234",
			v:     fleet.Vehicle{ID: "2", LicensePlate: "1234"},
			want:  "*Трак:* 1234\n*Номер:* 1234\n\nАктивных ошибок не найдено.",
		},
		"check engine without lit lamps": {
			msgs:  en,
			label: "101",
			f:     fleet.Faults{CheckEngine: &fleet.CheckEngineStatus{Source: fleet.J1939}},
			want:  "*Truck:* 101\n\nNo active faults found.",
		},
		"faults with check engine": {
			msgs:  ru,
			label: "101",
			v:     fleet.Vehicle{VIN: "1XKYD"},
			f: fleet.Faults{
				Records: []fleet.FaultRecord{
					{Source: fleet.J1939, Code: "42", Short: "Coolant level", Text: "low", OccurrenceCount: &three},
					{Source: fleet.Passenger, Code: "P0420"},
					{Source: fleet.J1939},
				},
				CheckEngine: &fleet.CheckEngineStatus{Warning: true, Stop: true},
			},
			want: "*Трак:* 101\n*VIN:* 1XKYD\n" +
				"\n*Check Engine:* Warning, Stop\n" +
				"\n*Активные ошибки:*\n" +
				"1. Код: `42` — Coolant level — low — (повторений: 3)\n" +
				"2. Код: `P0420`\n" +
				"3. Неизвестная ошибка",
		},
		"with advice": {
			msgs:   en,
			label:  "7",
			f:      fleet.Faults{Records: []fleet.FaultRecord{{Short: "Low oil pressure"}}},
			advice: "  Stop the engine.\n",
			want:   "*Truck:* 7\n\n*Active faults:*\n1. Low oil pressure\n\n*Advice:*\nStop the engine.",
		},
		"untrusted text is escaped": {
			msgs:  en,
			label: "truck_7",
			v:     fleet.Vehicle{LicensePlate: "TX_1*"},
			f: fleet.Faults{Records: []fleet.FaultRecord{
				{Code: "P`0420", Short: "Coolant_level", Text: "[low]"},
			}},
			advice: "Check the coolant_level sensor first.",
			want: "*Truck:* truck\\_7\n*Plate:* TX\\_1\\*\n" +
				"\n*Active faults:*\n" +
				"1. Code: `P'0420` — Coolant\\_level — \\[low]\n" +
				"\n*Advice:*\nCheck the coolant\\_level sensor first.",
		},
		"blank advice is omitted": {
			msgs:   en,
			label:  "7",
			advice: " \n ",
			want:   "*Truck:* 7\n\nNo active faults found.",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, Reply(tc.msgs, tc.label, tc.v, tc.f, tc.advice), tc.want)
		})
	}
}

func TestReplyTruncates(t *testing.T) {
	t.Parallel()

	var f fleet.Faults
	for i := range 45 {
		f.Records = append(f.Records, fleet.FaultRecord{Code: fmt.Sprint(i + 1)})
	}
	got := Reply(i18n.For(i18n.English), "1", fleet.Vehicle{}, f, "")

	var numbered int
	for _, line := range strings.Split(got, "\n") {
		if strings.Contains(line, ". Code: ") {
			numbered++
		}
	}
	testutil.AssertEqual(t, numbered, MaxFaults)
	if !strings.HasSuffix(got, "20. Code: `20`") {
		t.Fatalf("reply doesn't end with the 20th fault:\n%s", got)
	}
	testutil.AssertEqual(t, len(f.Records), 45)
}

func TestCode(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, Code("1234"), "1234")
	testutil.AssertEqual(t, Code("12`34`"), "12'34'")
	testutil.AssertEqual(t, Code("my_truck"), "my_truck")
}

func TestFaultZeroOccurrences(t *testing.T) {
	t.Parallel()

	zero := 0
	got := Fault(i18n.For(i18n.English), fleet.FaultRecord{Code: "0", OccurrenceCount: &zero})
	testutil.AssertEqual(t, got, "Code: `0` — (occurrences: 0)")
}
