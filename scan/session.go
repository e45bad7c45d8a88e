// Package scan runs bounded advertisement-scan sessions over an injected
// event source and renders the received traffic as display lines.
package scan

import (
	"context"
	"sync"
	"time"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"github.com/hirosichen/beacon"
)

var logger = log.New("scan")

// DefaultTimeout bounds a session that is never stopped manually.
const DefaultTimeout = 30 * time.Second

// Options configure a session. At most one of the name filters built with
// beacon.FilterName / beacon.FilterNamePrefix should be set; a nil Filter
// accepts all advertisements.
type Options struct {
	Filter   beacon.AdvFilter
	Handler  beacon.AdvHandler
	AllowDup bool
	Timeout  time.Duration // 0 means DefaultTimeout

	// OnStop is invoked exactly once when the session tears down, with the
	// context error that ended it (nil for a manual stop).
	OnStop func(reason error)
}

// A Session is one bounded subscription to a Device's advertisement stream.
type Session struct {
	dev    beacon.Device
	cancel context.CancelFunc
	onStop func(error)

	stopOnce sync.Once
	done     chan struct{}
}

// A Manager serializes sessions over a single Device. Starting a new session
// tears the previous one down first, so a given advertisement is never
// delivered to two handlers.
type Manager struct {
	mu  sync.Mutex
	dev beacon.Device
	cur *Session
}

// NewManager ...
func NewManager(d beacon.Device) *Manager {
	return &Manager{dev: d}
}

// Start begins a new scan session. Any session already active on the device
// is stopped before the new handler is installed.
func (m *Manager) Start(ctx context.Context, opts Options) (*Session, error) {
	if opts.Handler == nil {
		return nil, errors.New("scan: nil handler")
	}

	m.mu.Lock()
	prev := m.cur
	m.cur = nil
	m.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	s := &Session{
		dev:    m.dev,
		cancel: cancel,
		onStop: opts.OnStop,
		done:   make(chan struct{}),
	}

	// The handler is re-entrancy safe: it touches no session state beyond
	// the done channel, so bursty delivery cannot corrupt anything.
	h := func(a beacon.Advertisement) {
		select {
		case <-s.done:
			return
		default:
		}
		if opts.Filter != nil && !opts.Filter(a) {
			return
		}
		opts.Handler(a)
	}

	if err := m.dev.SetAdvHandler(h); err != nil {
		cancel()
		return nil, errors.Wrap(err, "can't set adv handler")
	}
	if err := m.dev.Scan(opts.AllowDup); err != nil {
		cancel()
		m.dev.SetAdvHandler(nil)
		return nil, errors.Wrap(err, "can't scan")
	}
	logger.Info("scan session started", "timeout", timeout.String())

	go func() {
		<-ctx.Done()
		s.teardown(ctx.Err())
	}()

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return s, nil
}

// Stop stops the current session, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	cur := m.cur
	m.cur = nil
	m.mu.Unlock()
	if cur != nil {
		cur.Stop()
	}
}

// Stop tears the session down. It is safe to call more than once and
// converges with the timeout path.
func (s *Session) Stop() {
	s.cancel()
	s.teardown(nil)
}

// Done is closed once the session has torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) teardown(reason error) {
	s.stopOnce.Do(func() {
		// Mark done first: events racing past teardown are dropped.
		close(s.done)
		if err := s.dev.StopScanning(); err != nil {
			logger.Warn("can't stop scanning", "err", err.Error())
		}
		s.dev.SetAdvHandler(nil)
		s.cancel()
		if reason == context.Canceled {
			reason = nil
		}
		logger.Info("scan session stopped")
		if s.onStop != nil {
			s.onStop(reason)
		}
	})
}
