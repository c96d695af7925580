package window

import (
	"errors"
	"testing"
	"time"
)

func TestMockDetector(t *testing.T) {
	var _ Detector = (*MockDetector)(nil)

	mock := NewMockDetector()
	mock.SetWindow("firefox", "Mozilla Firefox")

	windowInfo, err := mock.GetFocusedWindow()
	if err != nil {
		t.Errorf("GetFocusedWindow() error: %v", err)
	}
	if windowInfo.AppName != "firefox" {
		t.Errorf("AppName = %s, want firefox", windowInfo.AppName)
	}

	idleInfo, err := mock.GetIdleInfo()
	if err != nil {
		t.Errorf("GetIdleInfo() error: %v", err)
	}
	if idleInfo.IsIdle || idleInfo.IsLocked {
		t.Errorf("idle = %+v, want active desktop", idleInfo)
	}

	mock.MovePointer(10, 20)
	p, _ := mock.GetPointer()
	if p.X != 10 || p.Y != 20 {
		t.Errorf("pointer = %+v, want (10,20)", p)
	}

	if err := mock.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if !mock.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestMockDetectorWindowError(t *testing.T) {
	mock := NewMockDetector()
	mock.SetWindowError(errors.New("no display"))

	if _, err := mock.GetFocusedWindow(); err == nil {
		t.Error("GetFocusedWindow() error = nil, want error")
	}

	mock.SetWindow("code", "main.go")
	if _, err := mock.GetFocusedWindow(); err != nil {
		t.Errorf("GetFocusedWindow() error after SetWindow: %v", err)
	}
}

func TestMockDetectorIdle(t *testing.T) {
	tests := []struct {
		name string
		info IdleInfo
	}{
		{name: "active", info: IdleInfo{}},
		{name: "idle", info: IdleInfo{IsIdle: true, IdleTime: 301 * time.Second}},
		{name: "locked", info: IdleInfo{IsIdle: true, IsLocked: true, IdleTime: time.Hour}},
	}

	mock := NewMockDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.SetIdle(tt.info)
			got, err := mock.GetIdleInfo()
			if err != nil {
				t.Fatalf("GetIdleInfo() error: %v", err)
			}
			if *got != tt.info {
				t.Errorf("GetIdleInfo() = %+v, want %+v", *got, tt.info)
			}
		})
	}
}
