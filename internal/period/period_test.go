package period

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	p, err := New(at(9, 0), at(10, 30))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, p.Duration())

	zero, err := New(at(9, 0), at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), zero.Duration())

	_, err = New(at(10, 0), at(9, 59))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInterval))
}

func TestMustPanicsOnReversedInterval(t *testing.T) {
	assert.Panics(t, func() { Must(at(11, 0), at(10, 0)) })
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Period
		want bool
	}{
		{"disjoint", Must(at(9, 0), at(10, 0)), Must(at(11, 0), at(12, 0)), false},
		{"touching", Must(at(9, 0), at(10, 0)), Must(at(10, 0), at(11, 0)), false},
		{"partial", Must(at(9, 0), at(10, 0)), Must(at(9, 30), at(11, 0)), true},
		{"nested", Must(at(9, 0), at(12, 0)), Must(at(10, 0), at(11, 0)), true},
		{"identical", Must(at(9, 0), at(10, 0)), Must(at(9, 0), at(10, 0)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestOverlapDuration(t *testing.T) {
	tests := []struct {
		name string
		a, b Period
		want time.Duration
	}{
		{"disjoint", Must(at(9, 0), at(10, 0)), Must(at(11, 0), at(12, 0)), 0},
		{"touching", Must(at(9, 0), at(10, 0)), Must(at(10, 0), at(11, 0)), 0},
		{"partial", Must(at(9, 0), at(10, 0)), Must(at(9, 30), at(11, 0)), 30 * time.Minute},
		{"nested", Must(at(9, 0), at(12, 0)), Must(at(10, 0), at(10, 15)), 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.OverlapDuration(tt.b))
			assert.Equal(t, tt.want, tt.b.OverlapDuration(tt.a))
		})
	}
}

func TestTouchesAndUnion(t *testing.T) {
	a := Must(at(9, 0), at(10, 0))
	b := Must(at(10, 0), at(11, 0))
	c := Must(at(11, 30), at(12, 0))

	assert.True(t, a.Touches(b))
	assert.False(t, a.Touches(c))
	assert.True(t, a.Union(b).Equal(Must(at(9, 0), at(11, 0))))
}

func TestClip(t *testing.T) {
	day := Must(at(0, 0), at(23, 59))

	clipped, ok := Must(at(9, 0), at(10, 0)).Clip(day)
	require.True(t, ok)
	assert.True(t, clipped.Equal(Must(at(9, 0), at(10, 0))))

	_, ok = Must(at(9, 0), at(10, 0)).Clip(Must(at(11, 0), at(12, 0)))
	assert.False(t, ok)
}
