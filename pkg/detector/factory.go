package detector

import (
	"os"
	"time"

	"github.com/actionsum/worktally/pkg/integrations/x11"
	"github.com/actionsum/worktally/pkg/window"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned when no X display is reachable
var ErrUnsupported = errors.New("no supported display server (an X11 or XWayland DISPLAY is required)")

// New returns the detector for the current session. Wayland sessions are
// served through XWayland when DISPLAY is set.
func New(idleThreshold time.Duration) (window.Detector, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, errors.Wrapf(ErrUnsupported, "display server %s", DetectDisplayServer())
	}
	d, err := x11.NewDetector(idleThreshold)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DetectDisplayServer names the session type from the environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
