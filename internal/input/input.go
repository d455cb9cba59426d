// Package input merges click and keyboard events into one keyword stream.
package input

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Source identifies where an event came from.
type Source int

const (
	Click Source = iota
	Key
)

func (s Source) String() string {
	switch s {
	case Click:
		return "click"
	case Key:
		return "key"
	}
	return "unknown"
}

// KeyEnter is the confirm key.
const KeyEnter = "Enter"

// Event is one raw UI event. Value is the input field's content when the
// event fired.
type Event struct {
	Source Source
	Key    string
	Value  string
}

// Options tunes the keyboard path. Zero values pick the defaults.
type Options struct {
	// MinLength is the length a keyword must exceed. Default 2.
	MinLength int
	// Window is the quiet period a keyboard burst must end with. Default 1s.
	Window time.Duration
}

const (
	DefaultMinLength = 2
	DefaultWindow    = 1000 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.MinLength <= 0 {
		o.MinLength = DefaultMinLength
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

// Merge reads events until the channel closes or ctx ends and emits search
// keywords in the order they become ready.
//
// Clicks emit their value immediately. Key events pass only when the key is
// Enter, the value is longer than MinLength and differs from the previous
// value that got this far; the survivors are debounced so a burst yields only
// its last value, once Window has passed without another one.
//
// When events closes, a pending keyboard keyword is flushed before the output
// closes.
func Merge(ctx context.Context, events <-chan Event, opts Options) <-chan string {
	opts = opts.withDefaults()
	out := make(chan string)
	go func() {
		defer close(out)
		m := merger{opts: opts}
		defer m.stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					if m.hasPending {
						send(ctx, out, m.take())
					}
					return
				}
				if kw, ok := m.handle(ev); ok && !send(ctx, out, kw) {
					return
				}
			case <-m.fire():
				if !send(ctx, out, m.take()) {
					return
				}
			}
		}
	}()
	return out
}

func send(ctx context.Context, out chan<- string, kw string) bool {
	select {
	case out <- kw:
		return true
	case <-ctx.Done():
		return false
	}
}

// merger holds the keyboard chain state. It is owned by one goroutine.
type merger struct {
	opts Options

	last    string
	hasLast bool

	pending    string
	hasPending bool
	timer      *time.Timer
}

// handle returns a keyword to emit right away, if any.
func (m *merger) handle(ev Event) (string, bool) {
	switch ev.Source {
	case Click:
		return ev.Value, true
	case Key:
		if ev.Key != KeyEnter {
			return "", false
		}
		if utf8.RuneCountInString(ev.Value) <= m.opts.MinLength {
			log.Debug().Str("keyword", ev.Value).Msg("keyword too short")
			return "", false
		}
		if m.hasLast && ev.Value == m.last {
			log.Debug().Str("keyword", ev.Value).Msg("repeated keyword")
			return "", false
		}
		m.last, m.hasLast = ev.Value, true
		m.pending, m.hasPending = ev.Value, true
		m.arm()
	}
	return "", false
}

func (m *merger) arm() {
	if m.timer == nil {
		m.timer = time.NewTimer(m.opts.Window)
		return
	}
	if !m.timer.Stop() {
		select {
		case <-m.timer.C:
		default:
		}
	}
	m.timer.Reset(m.opts.Window)
}

// fire returns the debounce channel, or nil while nothing is pending so the
// select never picks it.
func (m *merger) fire() <-chan time.Time {
	if !m.hasPending || m.timer == nil {
		return nil
	}
	return m.timer.C
}

func (m *merger) take() string {
	kw := m.pending
	m.pending, m.hasPending = "", false
	return kw
}

func (m *merger) stop() {
	if m.timer != nil {
		m.timer.Stop()
	}
}
