package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/config"
	"github.com/muurk/airscan/internal/discovery"
	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/registry"
)

// DefaultEventBuffer is the capacity of the event channel
const DefaultEventBuffer = 64

var (
	// ErrUnknownDevice is returned by Scan for a name not in the registry.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrNotOpen is returned when the session is used before Open or after Close.
	ErrNotOpen = errors.New("session is not open")
)

// Options configures a Session. Zero values select production defaults.
type Options struct {
	Config *config.Config

	// Store persists the device list; nil keeps devices in memory only
	Store registry.Store

	// Browser replaces the mDNS resolver
	Browser discovery.Browser

	// Runner replaces the scan client built from Config
	Runner escl.Runner

	// DisableDiscovery skips the background listener
	DisableDiscovery bool

	EventBuffer int
}

// Session owns the registry, the discovery listener and the scan executor.
type Session struct {
	registry *registry.Registry
	listener *discovery.Listener
	executor *escl.Executor
	discover bool

	events   chan Event
	outcomes chan escl.Outcome

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   state
	cancels map[uuid.UUID]context.CancelFunc
}

type state int

const (
	stateNew state = iota
	stateOpen
	stateClosed
)

// New creates a session. Nothing runs until Open.
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	client := NewClient(cfg)
	runner := opts.Runner
	if runner == nil {
		runner = client
	}

	s := &Session{
		registry: registry.New(opts.Store),
		discover: !opts.DisableDiscovery,
		events:   make(chan Event, buffer),
		outcomes: make(chan escl.Outcome),
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}

	s.listener = NewListener(cfg, s.registry, client)
	s.listener.Browser = opts.Browser
	s.listener.OnDiscovered = s.deviceDiscovered

	s.executor = escl.NewExecutor(runner, s.outcomes)
	return s
}

// NewClient builds a scan client from preferences.
func NewClient(cfg *config.Config) *escl.Client {
	var wait escl.WaitStrategy = escl.FixedDelay{Delay: cfg.Wait.Delay}
	if cfg.Wait.Strategy == config.WaitPoll {
		wait = escl.StatusPoll{
			Interval: cfg.Wait.PollInterval,
			Timeout:  cfg.Wait.PollTimeout,
			Fallback: escl.FixedDelay{Delay: cfg.Wait.Delay},
		}
	}

	client := escl.NewClient(
		escl.WithWaitStrategy(wait),
		escl.WithFetchRetries(cfg.FetchRetries, escl.DefaultFetchRetryDelay),
	)
	client.HTTPClient.Timeout = cfg.HTTPTimeout
	return client
}

// NewListener builds a discovery listener from preferences. The client
// doubles as the eSCL prober when verify_escl is set.
func NewListener(cfg *config.Config, reg *registry.Registry, client *escl.Client) *discovery.Listener {
	l := discovery.NewListener(reg)
	l.Service = cfg.ServiceType
	if cfg.VerifyESCL && client != nil {
		l.Prober = client
	}
	return l
}

// Open loads the persisted devices and starts background discovery.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateNew {
		return fmt.Errorf("session already opened")
	}

	if _, err := s.registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.state = stateOpen

	s.wg.Add(1)
	go s.forwardOutcomes()

	if s.discover {
		s.wg.Add(1)
		go s.runListener()
	}

	logging.Info("Session opened",
		zap.Int("known_devices", s.registry.Len()),
		zap.Bool("discovery", s.discover),
	)
	return nil
}

// Events returns the channel of asynchronous events. It is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Devices returns the known devices in discovery order.
func (s *Session) Devices() []registry.DeviceRecord {
	return s.registry.List()
}

// Registry exposes the underlying device registry.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// Scan starts a scan of the named device and returns immediately. The result
// arrives as a ScanFinished event.
func (s *Session) Scan(ctx context.Context, name string) (uuid.UUID, error) {
	dev, ok := s.registry.Find(name)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	return s.ScanDevice(ctx, dev)
}

// ScanDevice starts a scan of dev, which need not be in the registry.
// Canceling ctx cancels the scan; Close cancels every running scan.
func (s *Session) ScanDevice(ctx context.Context, dev registry.DeviceRecord) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return uuid.Nil, ErrNotOpen
	}

	jobCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)

	id, err := s.executor.Start(jobCtx, dev)
	if err != nil {
		stop()
		cancel()
		return uuid.Nil, err
	}

	s.cancels[id] = func() {
		stop()
		cancel()
	}
	return id, nil
}

// Cancel aborts a running scan. It reports whether the job was still running.
func (s *Session) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Close stops discovery, cancels running scans and saves the device list.
// Calls after the first are no-ops.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	wasOpen := s.state == stateOpen
	s.state = stateClosed
	s.mu.Unlock()

	if !wasOpen {
		close(s.events)
		return nil
	}

	s.cancel()
	s.executor.Shutdown()
	s.wg.Wait()
	close(s.events)

	if err := s.registry.Save(ctx); err != nil {
		return err
	}

	logging.Info("Session closed", zap.Int("saved_devices", s.registry.Len()))
	return nil
}

func (s *Session) runListener() {
	defer s.wg.Done()

	if err := s.listener.Run(s.ctx); err != nil {
		logging.Error("Discovery failed", zap.Error(err))
		s.emit(DiscoveryFailed{Err: err})
	}
}

// deviceDiscovered runs on the listener goroutine.
func (s *Session) deviceDiscovered(dev registry.DeviceRecord) {
	s.emit(DeviceDiscovered{Device: dev})
}

func (s *Session) forwardOutcomes() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case outcome := <-s.outcomes:
			s.mu.Lock()
			if cancel, ok := s.cancels[outcome.JobID]; ok {
				cancel()
				delete(s.cancels, outcome.JobID)
			}
			s.mu.Unlock()

			s.emit(ScanFinished{Outcome: outcome})
		}
	}
}

// emit delivers ev unless the session is shutting down.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		logging.Debug("Event dropped during shutdown", zap.String("event", fmt.Sprintf("%T", ev)))
	}
}
