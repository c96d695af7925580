package x11

import (
	"os"
	"testing"
	"time"

	"github.com/jezek/xgb/screensaver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		in              string
		instance, class string
	}{
		{"code\x00Code\x00", "code", "Code"},
		{"firefox\x00", "firefox", ""},
		{"", "", ""},
		{"\x00Slack\x00", "", "Slack"},
	}
	for _, tt := range tests {
		instance, class := parseWMClass([]byte(tt.in))
		assert.Equal(t, tt.instance, instance)
		assert.Equal(t, tt.class, class)
	}
}

func TestAppName(t *testing.T) {
	assert.Equal(t, "code", appName("Code", "Code"))
	assert.Equal(t, "slack", appName("", "Slack"))
	assert.Equal(t, "unknown", appName("", ""))
}

func TestIdleInfo(t *testing.T) {
	info := idleInfo(screensaver.StateOff, 1500, time.Minute)
	assert.False(t, info.IsLocked)
	assert.False(t, info.IsIdle)
	assert.Equal(t, 1500*time.Millisecond, info.IdleTime)

	info = idleInfo(screensaver.StateOn, 120000, time.Minute)
	assert.True(t, info.IsLocked)
	assert.True(t, info.IsIdle)
}

func TestNewDetector_LiveDisplay(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("no X display")
	}

	d, err := NewDetector(time.Minute)
	if err != nil {
		t.Skipf("X server not reachable: %v", err)
	}
	defer d.Close()

	assert.True(t, d.IsAvailable())
	assert.Equal(t, "x11", d.GetDisplayServer())

	_, err = d.GetPointer()
	require.NoError(t, err)
	_, err = d.GetIdleInfo()
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.False(t, d.IsAvailable())
	_, err = d.GetFocusedWindow()
	assert.Error(t, err)
}
