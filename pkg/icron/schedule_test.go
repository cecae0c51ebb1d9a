package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	ref := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expr     string
		wantLast time.Time
		wantNext time.Time
	}{
		{
			name:     "daily midnight",
			expr:     "0 0 * * *",
			wantLast: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
			wantNext: time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "every fifteen minutes",
			expr:     "*/15 * * * *",
			wantLast: time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC),
			wantNext: time.Date(2024, 5, 10, 12, 45, 0, 0, time.UTC),
		},
		{
			name:     "with seconds field",
			expr:     "30 0 12 * * *",
			wantLast: time.Date(2024, 5, 10, 12, 0, 30, 0, time.UTC),
			wantNext: time.Date(2024, 5, 11, 12, 0, 30, 0, time.UTC),
		},
		{
			name:     "descriptor",
			expr:     "@hourly",
			wantLast: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
			wantNext: time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := GetTriggerInfo(tt.expr, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLast, info.Last)
			assert.Equal(t, tt.wantNext, info.Next)
			assert.Equal(t, ref.Sub(tt.wantLast), info.TimeSinceLast)
			assert.Equal(t, tt.wantNext.Sub(ref), info.TimeUntilNext)
		})
	}
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("not a cron", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
