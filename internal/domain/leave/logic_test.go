package leave

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDays(t *testing.T) {
	cases := []struct {
		name      string
		start     time.Time
		end       time.Time
		startHalf bool
		endHalf   bool
		want      string
		wantErr   bool
	}{
		{name: "single day", start: date(2025, 3, 10), end: date(2025, 3, 10), want: "1"},
		{name: "inclusive range", start: date(2025, 3, 10), end: date(2025, 3, 14), want: "5"},
		{name: "half day start", start: date(2025, 3, 10), end: date(2025, 3, 14), startHalf: true, want: "4.5"},
		{name: "half day both ends", start: date(2025, 3, 10), end: date(2025, 3, 14), startHalf: true, endHalf: true, want: "4"},
		{name: "single half day", start: date(2025, 3, 10), end: date(2025, 3, 10), startHalf: true, want: "0.5"},
		{name: "single day both halves", start: date(2025, 3, 10), end: date(2025, 3, 10), startHalf: true, endHalf: true, wantErr: true},
		{name: "end before start", start: date(2025, 3, 14), end: date(2025, 3, 10), wantErr: true},
		{name: "time of day ignored", start: time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC), end: time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC), want: "2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			days, err := RequestDays(tc.start, tc.end, tc.startHalf, tc.endHalf)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, days.Equal(decimal.RequireFromString(tc.want)),
				"got %s, want %s", days.String(), tc.want)
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := struct{ start, end time.Time }{date(2025, 3, 10), date(2025, 3, 15)}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"partial overlap at tail", date(2025, 3, 12), date(2025, 3, 20), true},
		{"partial overlap at head", date(2025, 3, 5), date(2025, 3, 10), true},
		{"contained", date(2025, 3, 11), date(2025, 3, 12), true},
		{"containing", date(2025, 3, 1), date(2025, 3, 31), true},
		{"identical", date(2025, 3, 10), date(2025, 3, 15), true},
		{"shared single boundary day", date(2025, 3, 15), date(2025, 3, 15), true},
		{"adjacent after", date(2025, 3, 16), date(2025, 3, 20), false},
		{"adjacent before", date(2025, 3, 5), date(2025, 3, 9), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.start, tc.end, base.start, base.end))
			assert.Equal(t, tc.want, Overlaps(base.start, base.end, tc.start, tc.end), "overlap must be symmetric")
		})
	}
}
