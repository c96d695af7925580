package events

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type ping struct{}

func (ping) EventName() string { return "Ping" }

func TestBus_FanOutInOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []string
	bus.Subscribe(func(e Event) error { got = append(got, "first:"+e.EventName()); return nil })
	bus.Subscribe(func(e Event) error { got = append(got, "second:"+e.EventName()); return nil })

	bus.Publish(ping{})

	assert.Equal(t, []string{"first:Ping", "second:Ping"}, got)
}

func TestBus_HandlerErrorIsLoggedNotPropagated(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(zerolog.New(&buf))

	delivered := false
	bus.Subscribe(func(Event) error { return errors.New("boom") })
	bus.Subscribe(func(Event) error { delivered = true; return nil })

	bus.Publish(ping{})

	assert.True(t, delivered)
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "Ping")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r

	p.Publish(ping{})
	p.Publish(ping{})

	assert.Equal(t, []string{"Ping", "Ping"}, r.Names())
	assert.Len(t, r.Events(), 2)

	r.Reset()
	assert.Empty(t, r.Events())
}
