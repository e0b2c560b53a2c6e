package domain

import (
	"sort"
	"strings"
)

type MaintenanceState string

const (
	MaintenanceAvailable     MaintenanceState = "available"
	MaintenanceNeedsCleaning MaintenanceState = "needs-cleaning"
	MaintenanceInMaintenance MaintenanceState = "in-maintenance"
)

type Suite struct {
	ID          string
	Name        string
	Tier        string // vip | standard_plus | standard
	Number      int
	Capacity    int
	Maintenance MaintenanceState
}

// Assignable reports whether the suite may be offered to a new reservation.
// Needs-cleaning suites stay assignable; only in-maintenance suites are
// pulled from the pool.
func (s Suite) Assignable() bool {
	return s.Maintenance != MaintenanceInMaintenance
}

// TierOrder is the configured tier preference, highest priority first.
// The preference between tiers is an operational choice, so it comes from
// configuration rather than being baked into the assignment algorithm.
type TierOrder []string

func ParseTierOrder(s string) TierOrder {
	var out TierOrder
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Rank returns the priority index of a tier; unknown tiers sort last.
func (o TierOrder) Rank(tier string) int {
	for i, t := range o {
		if t == strings.ToLower(tier) {
			return i
		}
	}
	return len(o)
}

// SortSuites orders candidates by tier priority, then suite number, then ID.
// The sort is stable and deterministic so repeated calls with the same input
// always produce the same candidate order.
func (o TierOrder) SortSuites(suites []Suite) {
	sort.SliceStable(suites, func(i, j int) bool {
		ri, rj := o.Rank(suites[i].Tier), o.Rank(suites[j].Tier)
		if ri != rj {
			return ri < rj
		}
		if suites[i].Number != suites[j].Number {
			return suites[i].Number < suites[j].Number
		}
		return suites[i].ID < suites[j].ID
	})
}
