// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package fleet

import (
	"context"
	"regexp"
	"strings"

	"go.astrophena.name/truckdoc/internal/api/samsara"
)

// truckNumberRe matches a run of 3 or 4 digits that isn't part of a longer
// number.
var truckNumberRe = regexp.MustCompile(`(?:^|\D)(\d{3,4})(?:\D|$)`)

// Candidates returns the queries tried for text, in order: the trimmed,
// lowercased text itself and then, if it differs, the first truck number
// found in it. It returns nil for blank text.
func Candidates(text string) []string {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return nil
	}
	c := []string{q}
	if m := truckNumberRe.FindStringSubmatch(q); m != nil && m[1] != q {
		c = append(c, m[1])
	}
	return c
}

// FindVehicle looks up a vehicle matching text. Candidates are tried in order
// against the first page of the fleet vehicle list. A vehicle matches if its
// name, license plate or any external ID equals the candidate, ignoring case.
// The first match wins.
//
// The boolean result reports whether a vehicle was found.
func (r *Resolver) FindVehicle(ctx context.Context, text string) (Vehicle, bool, error) {
	candidates := Candidates(text)
	if len(candidates) == 0 {
		return Vehicle{}, false, nil
	}

	vehicles, err := r.listVehicles(ctx)
	if err != nil {
		return Vehicle{}, false, err
	}

	for _, q := range candidates {
		if v, ok := match(vehicles, q); ok {
			return vehicleFrom(v), true, nil
		}
	}
	return Vehicle{}, false, nil
}

func match(vehicles []samsara.Vehicle, q string) (samsara.Vehicle, bool) {
	for _, v := range vehicles {
		if strings.ToLower(v.Name) == q || strings.ToLower(v.LicensePlate) == q {
			return v, true
		}
		for _, id := range v.ExternalIDs {
			if strings.ToLower(string(id)) == q {
				return v, true
			}
		}
	}
	return samsara.Vehicle{}, false
}
