// Package x11 reads focus, pointer and idle state straight from the X server
package x11

import (
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/actionsum/worktally/pkg/window"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// ErrNoActiveWindow is returned when neither _NET_ACTIVE_WINDOW nor the
// input focus point at a named window
var ErrNoActiveWindow = errors.New("no active window found")

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Detector implements window.Detector over one X connection
type Detector struct {
	idleThreshold time.Duration

	mu             sync.Mutex
	conn           *xgb.Conn
	root           xproto.Window
	atoms          map[string]xproto.Atom
	hasScreensaver bool
}

var _ window.Detector = (*Detector)(nil)

// NewDetector connects to $DISPLAY. Input older than idleThreshold reports idle.
func NewDetector(idleThreshold time.Duration) (*Detector, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	d := &Detector{
		idleThreshold: idleThreshold,
		conn:          conn,
		root:          xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms:         make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		d.atoms[name] = reply.Atom
	}

	d.hasScreensaver = screensaver.Init(conn) == nil
	return d, nil
}

// IsAvailable reports whether the connection is open
func (d *Detector) IsAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns the focused top-level window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, errors.New("x11 detector is closed")
	}

	win, err := d.activeWindow()
	if err != nil {
		return nil, err
	}

	instance, class := parseWMClass(d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, 256))
	return &window.WindowInfo{
		AppName:       appName(instance, class),
		WindowTitle:   d.windowName(win),
		ProcessName:   instance,
		DisplayServer: "x11",
	}, nil
}

// GetIdleInfo uses the MIT-SCREEN-SAVER extension; an active screensaver is
// reported as a locked session
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, errors.New("x11 detector is closed")
	}
	if !d.hasScreensaver {
		return &window.IdleInfo{}, nil
	}

	reply, err := screensaver.QueryInfo(d.conn, xproto.Drawable(d.root)).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query screensaver info")
	}
	return idleInfo(reply.State, reply.MsSinceUserInput, d.idleThreshold), nil
}

// GetPointer returns the pointer position on the root window
func (d *Detector) GetPointer() (*window.PointerInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, errors.New("x11 detector is closed")
	}

	reply, err := xproto.QueryPointer(d.conn, d.root).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query pointer")
	}
	return &window.PointerInfo{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}

// Close releases the X connection
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}

func (d *Detector) property(win xproto.Window, atom, atomType xproto.Atom, length uint32) []byte {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil || reply == nil {
		return nil
	}
	return reply.Value
}

func (d *Detector) hasName(win xproto.Window) bool {
	return len(d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 1)) > 0 ||
		len(d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 1)) > 0
}

func (d *Detector) activeWindow() (xproto.Window, error) {
	if data := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1); len(data) >= 4 {
		if win := xproto.Window(binary.LittleEndian.Uint32(data)); win != 0 && d.hasName(win) {
			return win, nil
		}
	}

	focus, err := xproto.GetInputFocus(d.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get input focus")
	}
	if focus.Focus == 0 || focus.Focus == d.root {
		return 0, ErrNoActiveWindow
	}

	top := d.topLevel(focus.Focus)
	if !d.hasName(top) {
		return 0, ErrNoActiveWindow
	}
	return top, nil
}

func (d *Detector) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) windowName(win xproto.Window) string {
	if data := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256); len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return strings.TrimRight(string(d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 256)), "\x00")
}

// parseWMClass splits the NUL separated WM_CLASS value
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	instance = parts[0]
	if len(parts) > 1 {
		class = parts[1]
	}
	return instance, class
}

// appName prefers the instance name, lower-cased, falling back to the class
func appName(instance, class string) string {
	if instance != "" {
		return strings.ToLower(instance)
	}
	if class != "" {
		return strings.ToLower(class)
	}
	return "unknown"
}

func idleInfo(state byte, msSinceInput uint32, threshold time.Duration) *window.IdleInfo {
	idle := time.Duration(msSinceInput) * time.Millisecond
	return &window.IdleInfo{
		IsLocked: state == screensaver.StateOn,
		IsIdle:   threshold > 0 && idle >= threshold,
		IdleTime: idle,
	}
}
