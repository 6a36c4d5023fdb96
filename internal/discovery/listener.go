package discovery

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/registry"
)

const (
	// ServiceType is the DNS-SD service browsed for scanners. AirScan
	// devices announce IPP alongside their eSCL endpoint.
	ServiceType = "_ipp._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultPort is used when an announcement carries no port
	DefaultPort = 631

	// DefaultScanTimeout is the default window for Discover
	DefaultScanTimeout = 10 * time.Second

	// DefaultProbeTimeout bounds each eSCL capability probe
	DefaultProbeTimeout = 5 * time.Second
)

// Browser subscribes to service announcements. *zeroconf.Resolver implements it.
// Entries are delivered until ctx is done.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Prober confirms that an announced device serves eSCL. *escl.Client implements it.
type Prober interface {
	ProbeCapabilities(ctx context.Context, address string) (*escl.Capabilities, error)
}

// Listener turns service announcements into registry records.
type Listener struct {
	// Registry receives discovered devices
	Registry *registry.Registry

	// Browser is the mDNS subscription; a zeroconf resolver is created when nil
	Browser Browser

	// Service and Domain select the announcements to browse
	Service string
	Domain  string

	// OnDiscovered is called on the listener goroutine for every newly
	// inserted device, never for re-announcements
	OnDiscovered func(registry.DeviceRecord)

	// Prober, when set, classifies devices as eSCL or IPP before insertion.
	// Without a prober every resolvable announcement is recorded as eSCL.
	Prober       Prober
	ProbeTimeout time.Duration
}

// NewListener creates a listener for the default scanner service type.
func NewListener(reg *registry.Registry) *Listener {
	return &Listener{
		Registry:     reg,
		Service:      ServiceType,
		Domain:       ServiceDomain,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

// Run browses until ctx is done or the browser shuts down. The subscription
// is released when Run returns.
func (l *Listener) Run(ctx context.Context) error {
	if l.Registry == nil {
		return fmt.Errorf("discovery listener has no registry")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	browser := l.Browser
	if browser == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return fmt.Errorf("failed to create mDNS resolver: %w", err)
		}
		browser = resolver
	}

	service, domain := l.service(), l.domain()
	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := browser.Browse(ctx, service, domain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	logging.Info("Discovery started", zap.String("service", service), zap.String("domain", domain))

	for {
		select {
		case <-ctx.Done():
			logging.Info("Discovery stopped", zap.Int("known_devices", l.Registry.Len()))
			return nil
		case entry, ok := <-entries:
			if !ok {
				logging.Info("Discovery stopped", zap.Int("known_devices", l.Registry.Len()))
				return nil
			}
			l.safeHandle(ctx, entry)
		}
	}
}

// Discover runs the listener for timeout and returns the devices that were
// newly added to the registry in that window.
func (l *Listener) Discover(ctx context.Context, timeout time.Duration) ([]registry.DeviceRecord, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var found []registry.DeviceRecord
	run := *l
	run.OnDiscovered = func(dev registry.DeviceRecord) {
		found = append(found, dev)
		if l.OnDiscovered != nil {
			l.OnDiscovered(dev)
		}
	}

	if err := run.Run(ctx); err != nil {
		return nil, err
	}
	return found, nil
}

// safeHandle keeps a panicking callback from tearing down the subscription.
func (l *Listener) safeHandle(ctx context.Context, entry *zeroconf.ServiceEntry) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Discovery handler panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	l.handleEntry(ctx, entry)
}

// handleEntry records one announcement. It reports whether a new device
// was inserted.
func (l *Listener) handleEntry(ctx context.Context, entry *zeroconf.ServiceEntry) bool {
	if entry == nil {
		return false
	}

	name := InstanceName(entry)
	if entry.TTL == 0 {
		// Goodbye packet. Known devices stay in the registry.
		logging.LogDiscovery("removed", name, "")
		return false
	}

	if l.known(name) {
		logging.Debug("Ignoring re-announcement", zap.String("name", name))
		return false
	}

	rec, err := recordFromEntry(entry, registry.KindESCL)
	if err != nil {
		logging.Debug("Dropping announcement", zap.Error(err))
		return false
	}

	if l.Prober != nil {
		rec.Kind = l.probe(ctx, rec)
	}

	if !l.Registry.Upsert(rec) {
		return false
	}

	logging.LogDiscovery("discovered", rec.Name, rec.Address)
	if txt := txtRecords(entry.Text); len(txt) > 0 {
		logging.Debug("Announcement details",
			zap.String("name", rec.Name),
			zap.String("host", entry.HostName),
			zap.Bool("ipv6", isIPv6(rec.Address)),
			zap.Any("txt", txt),
		)
	}

	if l.OnDiscovered != nil {
		l.OnDiscovered(rec)
	}
	return true
}

// known reports whether name is already recorded under a kind this listener
// would assign, so re-announcements skip the capability probe.
func (l *Listener) known(name string) bool {
	if _, ok := l.Registry.Get(name, registry.KindESCL); ok {
		return true
	}
	if l.Prober != nil {
		_, ok := l.Registry.Get(name, registry.KindIPP)
		return ok
	}
	return false
}

func (l *Listener) probe(ctx context.Context, rec registry.DeviceRecord) registry.Kind {
	timeout := l.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	caps, err := l.Prober.ProbeCapabilities(probeCtx, rec.Address)
	if err != nil {
		logging.Debug("Device does not serve eSCL",
			zap.String("name", rec.Name),
			zap.String("address", rec.Address),
			zap.Error(err),
		)
		return registry.KindIPP
	}

	logging.Debug("eSCL capabilities confirmed",
		zap.String("name", rec.Name),
		zap.String("model", caps.MakeAndModel),
		zap.Bool("platen", caps.HasPlaten()),
	)
	return registry.KindESCL
}

func (l *Listener) service() string {
	if l.Service == "" {
		return ServiceType
	}
	return l.Service
}

func (l *Listener) domain() string {
	if l.Domain == "" {
		return ServiceDomain
	}
	return l.Domain
}
