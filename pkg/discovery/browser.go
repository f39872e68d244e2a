package discovery

import (
	"context"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/version"
)

// Browser provides mDNS service browsing capabilities.
type Browser interface {
	// BrowseProbes searches for probe servers. New servers are sent on the
	// returned channel, which is closed when ctx is done.
	BrowseProbes(ctx context.Context) (<-chan *ProbeService, error)

	// FindProbe returns the first probe server accepted by all filters.
	// Returns ErrNotFound when none appears before ctx is done.
	FindProbe(ctx context.Context, filters ...FilterFunc) (*ProbeService, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds FindProbe when ctx has no deadline.
	// Default: 3 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// ServiceEntry is a resolved mDNS service instance, independent of the
// mDNS library.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToProbeService converts a ServiceEntry to ProbeService.
func (e *ServiceEntry) ToProbeService() (*ProbeService, error) {
	info, err := DecodeProbeTXT(StringsToTXTRecords(e.Text))
	if err != nil {
		return nil, err
	}

	return &ProbeService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		ID:           info.ID,
		Variant:      info.Variant,
		Protocol:     info.Protocol,
	}, nil
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(*ProbeService) bool

// FilterByVariant returns a filter that matches servers for the given variant.
func FilterByVariant(variant string) FilterFunc {
	return func(svc *ProbeService) bool {
		return svc.Variant == variant
	}
}

// FilterByID returns a filter that matches the server with the given ID.
func FilterByID(id string) FilterFunc {
	return func(svc *ProbeService) bool {
		return svc.ID == id
	}
}

// FilterCompatible returns a filter that matches servers whose protocol
// major version equals ours.
func FilterCompatible() FilterFunc {
	return func(svc *ProbeService) bool {
		_, err := version.Negotiate(svc.Protocol)
		return err == nil
	}
}

// matchAll reports whether svc passes every filter.
func matchAll(svc *ProbeService, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(svc) {
			return false
		}
	}
	return true
}

// aggregator merges entries of the same instance seen on several interfaces.
type aggregator struct {
	services map[string]*ProbeService
}

func newAggregator() *aggregator {
	return &aggregator{services: make(map[string]*ProbeService)}
}

// add records an entry. It returns the service when the instance is new,
// nil when only addresses were merged or the entry is not a valid probe.
func (a *aggregator) add(entry *ServiceEntry) *ProbeService {
	svc, err := entry.ToProbeService()
	if err != nil {
		return nil
	}
	if existing, found := a.services[svc.InstanceName]; found {
		existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
		return nil
	}
	a.services[svc.InstanceName] = svc
	return svc
}

// remove drops the entry's addresses, and the instance once none remain.
func (a *aggregator) remove(entry *ServiceEntry) {
	existing, found := a.services[entry.Instance]
	if !found {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, entry.Addrs)
	if len(existing.Addresses) == 0 {
		delete(a.services, entry.Instance)
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the given addresses from the list.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
