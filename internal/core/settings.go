package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// TimeUnit is the unit the randomize interval is entered in.
type TimeUnit string

const (
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
)

// ParseTimeUnit accepts minutes, hours or days. Empty means minutes.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch TimeUnit(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnitMinutes:
		return UnitMinutes, nil
	case UnitHours:
		return UnitHours, nil
	case UnitDays:
		return UnitDays, nil
	}
	return "", &domain.ValidationError{Field: "time unit", Reason: fmt.Sprintf("%q must be minutes, hours or days", s)}
}

// ToMinutes converts v in unit to minutes.
func ToMinutes(v float64, unit TimeUnit) float64 {
	switch unit {
	case UnitHours:
		return v * 60
	case UnitDays:
		return v * 24 * 60
	default:
		return v
	}
}

// FromMinutes converts minutes to unit.
func FromMinutes(minutes float64, unit TimeUnit) float64 {
	switch unit {
	case UnitHours:
		return minutes / 60
	case UnitDays:
		return minutes / (24 * 60)
	default:
		return minutes
	}
}

// FormatInterval renders a value in unit with at most two decimals when it
// is at least 1, and four below that, trailing zeros trimmed.
func FormatInterval(minutes float64, unit TimeUnit) string {
	v := FromMinutes(minutes, unit)
	prec := 2
	if v < 1 && v > -1 {
		prec = 4
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// ParseRandomizeTime validates a user entered interval. ok is false for
// empty input, which changes nothing. Zero disables timed randomizing.
// Minutes must be at least 1, except the 0.25 quick interval; hours and
// days must be at least 1.
func ParseRandomizeTime(raw string, unit TimeUnit) (minutes float64, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, &domain.ValidationError{Field: "randomize time", Reason: "is not a number"}
	}
	if v == 0 {
		return 0, true, nil
	}
	switch unit {
	case UnitHours, UnitDays:
		if v < 1 {
			return 0, false, &domain.ValidationError{Field: "randomize time", Reason: "must be at least 1 " + string(unit)}
		}
	default:
		if v < 1 && v != 0.25 {
			return 0, false, &domain.ValidationError{Field: "randomize time", Reason: "must be at least 1 minute"}
		}
	}
	return ToMinutes(v, unit), true, nil
}

// Settings reads and writes the popup preferences.
type Settings struct {
	store kv.Store
}

// NewSettings creates a settings accessor
func NewSettings(store kv.Store) *Settings {
	return &Settings{store: store}
}

// SettingKeys lists every setting in display order.
func SettingKeys() []string {
	keys := make([]string, 0, len(domain.BoolSettingDefaults)+2)
	for k := range domain.BoolSettingDefaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return append(keys, domain.KeyRandomizeTime, domain.KeyTimeUnit)
}

// All returns every setting with defaults applied.
func (s *Settings) All(ctx context.Context) (map[string]any, error) {
	vals, err := kv.Read(ctx, s.store, SettingKeys()...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(domain.BoolSettingDefaults)+2)
	for k, def := range domain.BoolSettingDefaults {
		b, err := vals.Bool(k, def)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}

	var minutes float64
	if _, err := vals.Decode(domain.KeyRandomizeTime, &minutes); err != nil {
		return nil, err
	}
	out[domain.KeyRandomizeTime] = minutes

	unit, err := vals.String(domain.KeyTimeUnit)
	if err != nil {
		return nil, err
	}
	if unit == "" {
		unit = string(UnitMinutes)
	}
	out[domain.KeyTimeUnit] = unit
	return out, nil
}

// Set parses value for key and stores it.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	if _, ok := domain.BoolSettingDefaults[key]; ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &domain.ValidationError{Field: key, Reason: "must be true or false"}
		}
		return s.store.Set(ctx, map[string]any{key: b})
	}

	switch key {
	case domain.KeyTimeUnit:
		unit, err := ParseTimeUnit(value)
		if err != nil {
			return err
		}
		return s.store.Set(ctx, map[string]any{key: string(unit)})
	case domain.KeyRandomizeTime:
		return s.SetRandomizeTime(ctx, value, "")
	}
	return &domain.ValidationError{Field: "setting", Reason: fmt.Sprintf("%q is unknown", key)}
}

// SetRandomizeTime validates raw in unit and stores it in minutes. An empty
// unit uses the stored one.
func (s *Settings) SetRandomizeTime(ctx context.Context, raw string, unit TimeUnit) error {
	if unit == "" {
		vals, err := kv.Read(ctx, s.store, domain.KeyTimeUnit)
		if err != nil {
			return err
		}
		stored, err := vals.String(domain.KeyTimeUnit)
		if err != nil {
			return err
		}
		if unit, err = ParseTimeUnit(stored); err != nil {
			return err
		}
	}

	minutes, ok, err := ParseRandomizeTime(raw, unit)
	if err != nil || !ok {
		return err
	}
	return s.store.Set(ctx, map[string]any{domain.KeyRandomizeTime: minutes})
}
