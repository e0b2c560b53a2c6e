package app

import (
	"strconv"
	"strings"
	"time"

	"tailtown/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Gingr exports are not consistent across endpoints or versions: ids arrive
// as numbers or strings, dates in several layouts, owner/animal either flat
// or nested. Each logical field keeps an ordered list of paths to try.
var gingrAliases = map[string][]string{
	"external_id": {"id", "reservation_id", "transaction_id"},
	"start":       {"start_date", "startDate", "check_in", "start"},
	"end":         {"end_date", "endDate", "check_out", "end"},
	"status":      {"status", "reservation_status", "status.name"},
	"pet":         {"animal_id", "pet_id", "animal.id", "a_id"},
	"customer":    {"owner_id", "customer_id", "owner.id", "o_id"},
	"tier":        {"type.name", "reservation_type", "type", "suite_type"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupString coerces strings and JSON numbers at path into a string.
func lookupString(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// firstAlias: first non-empty value for a named alias set.
func firstAlias(m map[string]any, key string) string {
	for _, p := range gingrAliases[key] {
		if s := lookupString(m, p); s != "" {
			return s
		}
	}
	return ""
}

var gingrTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseGingrTime(s string) time.Time {
	for _, layout := range gingrTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// normalizeStatus folds Gingr's status spellings and numeric codes into the
// domain lifecycle. Unknown values default to pending: imports arrive
// unconfirmed and the booking workflow owns later transitions.
func normalizeStatus(s string) domain.Status {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "confirmed", "2":
		return domain.StatusConfirmed
	case "checked-in", "checkedin", "3":
		return domain.StatusCheckedIn
	case "checked-out", "checkedout", "4":
		return domain.StatusCheckedOut
	case "cancelled", "canceled", "0":
		return domain.StatusCancelled
	}
	return domain.StatusPending
}

func normalizeTier(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.ReplaceAll(t, " ", "_")
	switch {
	case strings.Contains(t, "vip"), strings.Contains(t, "luxury"):
		return "vip"
	case strings.Contains(t, "plus"), strings.Contains(t, "deluxe"):
		return "standard_plus"
	}
	return "standard"
}

/********** reservation mapper **********/

type gingrReservation struct {
	ExternalID string
	PetID      string
	CustomerID string
	Tier       string
	StartAt    time.Time
	EndAt      time.Time
	Status     domain.Status
}

func mapGingrReservation(row map[string]any) gingrReservation {
	return gingrReservation{
		ExternalID: firstAlias(row, "external_id"),
		PetID:      firstAlias(row, "pet"),
		CustomerID: firstAlias(row, "customer"),
		Tier:       normalizeTier(firstAlias(row, "tier")),
		StartAt:    parseGingrTime(firstAlias(row, "start")),
		EndAt:      parseGingrTime(firstAlias(row, "end")),
		Status:     normalizeStatus(firstAlias(row, "status")),
	}
}
