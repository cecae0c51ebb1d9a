package playback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{seconds: 0, want: "00:00"},
		{seconds: 59.9, want: "00:59"},
		{seconds: 61, want: "01:01"},
		{seconds: 3599, want: "59:59"},
		{seconds: 3600, want: "01:00:00"},
		{seconds: 7384.5, want: "02:03:04"},
		{seconds: -3, want: "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.seconds), "%v", tt.seconds)
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(10, 0))
	assert.Equal(t, 50.0, Progress(30, 60))
	assert.Equal(t, 100.0, Progress(90, 60))
}

func TestValidRate(t *testing.T) {
	for _, r := range SpeedPresets {
		assert.True(t, ValidRate(r))
	}
	assert.False(t, ValidRate(3))
	assert.False(t, ValidRate(0))
}

func TestSeekRelative(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewSimulated(WithDuration(100), WithClock(func() time.Time { return now }))
	require.NoError(t, s.Load(context.Background(), "movie.mkv"))
	require.NoError(t, s.SetPosition(5))

	pos, err := SeekRelative(s, -SeekStep)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pos)

	pos, err = SeekRelative(s, SeekStep)
	require.NoError(t, err)
	assert.Equal(t, 10.0, pos)

	require.NoError(t, s.SetPosition(95))
	pos, err = SeekRelative(s, SeekStep)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos)
}

func TestSeekRelative_NoMedia(t *testing.T) {
	_, err := SeekRelative(NewSimulated(), SeekStep)
	assert.ErrorIs(t, err, ErrNoMedia)
}
