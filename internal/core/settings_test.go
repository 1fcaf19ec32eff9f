package core_test

import (
	"context"
	"testing"

	"modrand/internal/core"
	"modrand/internal/domain"
	"modrand/internal/storage/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRandomizeTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		unit    core.TimeUnit
		want    float64
		wantOK  bool
		wantErr bool
	}{
		{"empty is a no-op", "", core.UnitMinutes, 0, false, false},
		{"zero disables", "0", core.UnitHours, 0, true, false},
		{"minutes", "15", core.UnitMinutes, 15, true, false},
		{"quarter minute", "0.25", core.UnitMinutes, 0.25, true, false},
		{"below a minute", "0.5", core.UnitMinutes, 0, false, true},
		{"hours", "1.5", core.UnitHours, 90, true, false},
		{"below an hour", "0.5", core.UnitHours, 0, false, true},
		{"days", "2", core.UnitDays, 2880, true, false},
		{"below a day", "0.25", core.UnitDays, 0, false, true},
		{"not a number", "soon", core.UnitMinutes, 0, false, true},
		{"NaN", "NaN", core.UnitMinutes, 0, false, true},
		{"infinity", "Inf", core.UnitHours, 0, false, true},
		{"negative infinity", "-inf", core.UnitDays, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := core.ParseRandomizeTime(tt.raw, tt.unit)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinutesConversion(t *testing.T) {
	assert.Equal(t, 120.0, core.ToMinutes(2, core.UnitHours))
	assert.Equal(t, 1440.0, core.ToMinutes(1, core.UnitDays))
	assert.Equal(t, 1.5, core.FromMinutes(90, core.UnitHours))
	assert.Equal(t, "1.5", core.FormatInterval(90, core.UnitHours))
	assert.Equal(t, "0.0417", core.FormatInterval(60, core.UnitDays))
	assert.Equal(t, "30", core.FormatInterval(30, core.UnitMinutes))
}

func TestParseTimeUnit(t *testing.T) {
	unit, err := core.ParseTimeUnit("Hours")
	require.NoError(t, err)
	assert.Equal(t, core.UnitHours, unit)

	unit, err = core.ParseTimeUnit("")
	require.NoError(t, err)
	assert.Equal(t, core.UnitMinutes, unit)

	_, err = core.ParseTimeUnit("weeks")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := core.NewSettings(store)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, all[domain.KeyRandomizeAll])
	assert.Equal(t, true, all[domain.KeyShowNotifications])
	assert.Equal(t, "minutes", all[domain.KeyTimeUnit])
	assert.Equal(t, 0.0, all[domain.KeyRandomizeTime])

	require.NoError(t, s.Set(ctx, domain.KeyRandomizeAll, "true"))
	require.NoError(t, s.Set(ctx, domain.KeyTimeUnit, "hours"))
	require.NoError(t, s.Set(ctx, domain.KeyRandomizeTime, "2"))

	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, all[domain.KeyRandomizeAll])
	assert.Equal(t, "hours", all[domain.KeyTimeUnit])
	assert.Equal(t, 120.0, all[domain.KeyRandomizeTime])

	assert.ErrorIs(t, s.Set(ctx, domain.KeyOpenModsTab, "maybe"), domain.ErrValidation)
	assert.ErrorIs(t, s.Set(ctx, "colour", "red"), domain.ErrValidation)
	assert.ErrorIs(t, s.Set(ctx, domain.KeyRandomizeTime, "0.5"), domain.ErrValidation)
	assert.ErrorIs(t, s.Set(ctx, domain.KeyRandomizeTime, "Inf"), domain.ErrValidation)
	assert.ErrorIs(t, s.Set(ctx, domain.KeyRandomizeTime, "NaN"), domain.ErrValidation)

	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120.0, all[domain.KeyRandomizeTime])
}

func TestSettingKeys(t *testing.T) {
	keys := core.SettingKeys()
	assert.Len(t, keys, len(domain.BoolSettingDefaults)+2)
	assert.Equal(t, domain.KeyTimeUnit, keys[len(keys)-1])
}
