package state

import (
	"context"
	"testing"
	"time"

	"github.com/actionsum/worktally/pkg/window"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idleFor(d time.Duration) window.IdleInfo {
	return window.IdleInfo{IdleTime: d}
}

func TestDetectorRecognizer_Sequence(t *testing.T) {
	det := window.NewMockDetector()
	det.SetIdle(idleFor(time.Hour))
	det.SetWindow("code", "main.go")
	r := NewDetectorRecognizer(det, 5*time.Second)
	ctx := context.Background()

	s, err := r.RecognizeState(ctx)
	require.NoError(t, err)
	assert.Equal(t, Focus("code", "main.go"), s)

	// same window, no pointer baseline yet, long idle
	s, err = r.RecognizeState(ctx)
	require.NoError(t, err)
	assert.True(t, s.IsZero())

	det.MovePointer(100, 200)
	s, err = r.RecognizeState(ctx)
	require.NoError(t, err)
	assert.Equal(t, Mouse, s)

	det.SetIdle(idleFor(time.Second))
	s, err = r.RecognizeState(ctx)
	require.NoError(t, err)
	assert.Equal(t, Input, s)

	det.SetIdle(window.IdleInfo{IsLocked: true})
	s, err = r.RecognizeState(ctx)
	require.NoError(t, err)
	assert.True(t, s.IsLocked())

	// unlocking re-emits the focused application
	det.SetIdle(idleFor(time.Second))
	s, err = r.RecognizeState(ctx)
	require.NoError(t, err)
	assert.Equal(t, FocusOnApplication, s.Kind)
	assert.Equal(t, "code", s.Application)
}

func TestDetectorRecognizer_Errors(t *testing.T) {
	det := window.NewMockDetector()
	det.SetWindowError(errors.New("display gone"))
	r := NewDetectorRecognizer(det, time.Second)

	_, err := r.RecognizeState(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display gone")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RecognizeState(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindRoundTrip(t *testing.T) {
	for k := None; k <= InputDetected; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("sleeping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"sleeping"`)
	_, hasStack := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, hasStack, "errors carry a stack for the log marshaler")
}

func TestSystemStateEquality(t *testing.T) {
	assert.Equal(t, Focus("a", "t"), Focus("a", "t"))
	assert.NotEqual(t, Focus("a", "t"), Focus("b", "t"))
	assert.True(t, Locked == SystemState{Kind: SystemLocked})
	assert.Equal(t, "focus-on-application:a", Focus("a", "t").String())
}
