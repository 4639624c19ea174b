package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-lunar-birthday/internal/lunar"
)

// TestNextOccurrence covers the rollover rule around the 2024 Spring Festival
// (2024-02-10 is 正月初一).
func TestNextOccurrence(t *testing.T) {
	bridge := lunar.NewChinese()

	tests := []struct {
		name      string
		today     lunar.SolarDate
		lunarYear int
		birth     lunar.LunisolarDate
		wantLunar lunar.LunisolarDate
		wantSolar lunar.SolarDate
	}{
		{
			name:      "later this year",
			today:     lunar.SolarDate{Year: 2024, Month: 2, Day: 10},
			lunarYear: 2024,
			birth:     lunar.LunisolarDate{Year: 1990, Month: 1, Day: 15},
			wantLunar: lunar.LunisolarDate{Year: 2024, Month: 1, Day: 15},
			wantSolar: lunar.SolarDate{Year: 2024, Month: 2, Day: 24},
		},
		{
			name:      "today",
			today:     lunar.SolarDate{Year: 2024, Month: 2, Day: 24},
			lunarYear: 2024,
			birth:     lunar.LunisolarDate{Year: 1990, Month: 1, Day: 15},
			wantLunar: lunar.LunisolarDate{Year: 2024, Month: 1, Day: 15},
			wantSolar: lunar.SolarDate{Year: 2024, Month: 2, Day: 24},
		},
		{
			name:      "already passed rolls to next lunar year",
			today:     lunar.SolarDate{Year: 2024, Month: 2, Day: 25},
			lunarYear: 2024,
			birth:     lunar.LunisolarDate{Year: 1990, Month: 1, Day: 15},
			wantLunar: lunar.LunisolarDate{Year: 2025, Month: 1, Day: 15},
			wantSolar: lunar.SolarDate{Year: 2025, Month: 2, Day: 12},
		},
		{
			name:      "leap month birth in a year without that leap month",
			today:     lunar.SolarDate{Year: 2024, Month: 3, Day: 1},
			lunarYear: 2024,
			birth:     lunar.LunisolarDate{Year: 2023, Month: 2, Day: 10, Leap: true},
			wantLunar: lunar.LunisolarDate{Year: 2024, Month: 2, Day: 10},
			wantSolar: lunar.SolarDate{Year: 2024, Month: 3, Day: 19},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLunar, gotSolar, err := nextOccurrence(bridge, tt.today, tt.lunarYear, tt.birth)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLunar, gotLunar)
			assert.Equal(t, tt.wantSolar, gotSolar)
			assert.False(t, gotSolar.Before(tt.today))
		})
	}
}

func TestNextOccurrence_InvalidMonth(t *testing.T) {
	_, _, err := nextOccurrence(lunar.NewChinese(), lunar.SolarDate{Year: 2024, Month: 2, Day: 10}, 2024, lunar.LunisolarDate{Year: 1990, Month: 13, Day: 1})
	assert.ErrorIs(t, err, lunar.ErrInvalidDate)
}
