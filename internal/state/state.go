// Package state turns raw detector readings into the discrete system states
// consumed by the activity and break trackers.
package state

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags a SystemState
type Kind uint8

const (
	// None means nothing was observed this tick; it is never enqueued
	None Kind = iota
	FocusOnApplication
	SystemLocked
	MouseMoved
	InputDetected
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case FocusOnApplication:
		return "focus-on-application"
	case SystemLocked:
		return "system-locked"
	case MouseMoved:
		return "mouse-moved"
	case InputDetected:
		return "input-detected"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	for k := None; k <= InputDetected; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return None, errors.Errorf("unknown system state %q", s)
}

// SystemState is an opaque, comparable signal tag
type SystemState struct {
	Kind        Kind
	Application string
	Title       string
}

// Focus returns a focus state for application
func Focus(application, title string) SystemState {
	return SystemState{Kind: FocusOnApplication, Application: application, Title: title}
}

// Locked is the session-locked state
var Locked = SystemState{Kind: SystemLocked}

// Mouse is the pointer-moved state
var Mouse = SystemState{Kind: MouseMoved}

// Input is the generic user-input state
var Input = SystemState{Kind: InputDetected}

// IsZero reports whether s carries no observation
func (s SystemState) IsZero() bool { return s.Kind == None }

// IsLocked reports whether s is the system-locked state
func (s SystemState) IsLocked() bool { return s.Kind == SystemLocked }

func (s SystemState) String() string {
	if s.Kind == FocusOnApplication {
		return s.Kind.String() + ":" + s.Application
	}
	return s.Kind.String()
}

// Recognizer is the signal source polled once per tick
type Recognizer interface {
	RecognizeState(ctx context.Context) (SystemState, error)
}

// RecognizerFunc adapts a function to Recognizer
type RecognizerFunc func(ctx context.Context) (SystemState, error)

// RecognizeState calls f(ctx)
func (f RecognizerFunc) RecognizeState(ctx context.Context) (SystemState, error) {
	return f(ctx)
}
