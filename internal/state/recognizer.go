package state

import (
	"context"
	"sync"
	"time"

	"github.com/actionsum/worktally/pkg/window"

	"github.com/pkg/errors"
)

// DetectorRecognizer derives one SystemState per call from a window.Detector.
// Priority: lock, focus change, pointer movement, recent input.
type DetectorRecognizer struct {
	detector    window.Detector
	inputWindow time.Duration

	mu          sync.Mutex
	lastApp     string
	lastPointer *window.PointerInfo
}

// NewDetectorRecognizer creates a recognizer. Input younger than inputWindow
// (usually the poll interval) counts as activity.
func NewDetectorRecognizer(detector window.Detector, inputWindow time.Duration) *DetectorRecognizer {
	return &DetectorRecognizer{detector: detector, inputWindow: inputWindow}
}

func (r *DetectorRecognizer) RecognizeState(ctx context.Context) (SystemState, error) {
	if err := ctx.Err(); err != nil {
		return SystemState{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idle, err := r.detector.GetIdleInfo()
	if err != nil {
		return SystemState{}, errors.Wrap(err, "failed to get idle info")
	}
	if idle != nil && idle.IsLocked {
		// force a fresh focus signal once the session is unlocked
		r.lastApp = ""
		return Locked, nil
	}

	win, err := r.detector.GetFocusedWindow()
	if err != nil {
		return SystemState{}, errors.Wrap(err, "failed to get focused window")
	}
	if win != nil && win.AppName != "" && win.AppName != r.lastApp {
		r.lastApp = win.AppName
		return Focus(win.AppName, win.WindowTitle), nil
	}

	pointer, err := r.detector.GetPointer()
	if err != nil {
		return SystemState{}, errors.Wrap(err, "failed to get pointer position")
	}
	if pointer != nil {
		moved := r.lastPointer != nil && *pointer != *r.lastPointer
		r.lastPointer = pointer
		if moved {
			return Mouse, nil
		}
	}

	if idle != nil && !idle.IsIdle && idle.IdleTime < r.inputWindow {
		return Input, nil
	}

	return SystemState{}, nil
}
