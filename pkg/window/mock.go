package window

import "sync"

// MockDetector is a scriptable Detector for tests and dry runs
type MockDetector struct {
	mu            sync.Mutex
	windowInfo    *WindowInfo
	idleInfo      *IdleInfo
	pointer       *PointerInfo
	windowErr     error
	closed        bool
	displayServer string
}

// NewMockDetector returns a detector reporting an unlocked, active desktop
func NewMockDetector() *MockDetector {
	return &MockDetector{
		idleInfo:      &IdleInfo{},
		pointer:       &PointerInfo{},
		displayServer: "mock",
	}
}

// SetWindow sets the focused window returned by GetFocusedWindow
func (m *MockDetector) SetWindow(appName, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowInfo = &WindowInfo{AppName: appName, WindowTitle: title, ProcessName: appName, DisplayServer: m.displayServer}
	m.windowErr = nil
}

// SetWindowError makes GetFocusedWindow fail with err
func (m *MockDetector) SetWindowError(err error) {
	m.mu.Lock()
	m.windowErr = err
	m.mu.Unlock()
}

// SetIdle sets the reported idle state
func (m *MockDetector) SetIdle(info IdleInfo) {
	m.mu.Lock()
	m.idleInfo = &info
	m.mu.Unlock()
}

// MovePointer sets the pointer position
func (m *MockDetector) MovePointer(x, y int) {
	m.mu.Lock()
	m.pointer = &PointerInfo{X: x, Y: y}
	m.mu.Unlock()
}

func (m *MockDetector) GetFocusedWindow() (*WindowInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.windowErr != nil {
		return nil, m.windowErr
	}
	if m.windowInfo == nil {
		return nil, nil
	}
	info := *m.windowInfo
	return &info, nil
}

func (m *MockDetector) GetIdleInfo() (*IdleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := *m.idleInfo
	return &info, nil
}

func (m *MockDetector) GetPointer() (*PointerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *m.pointer
	return &p, nil
}

func (m *MockDetector) IsAvailable() bool {
	return true
}

func (m *MockDetector) GetDisplayServer() string {
	return m.displayServer
}

func (m *MockDetector) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
