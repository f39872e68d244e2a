package observe

import (
	"errors"
	"strings"

	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Request is the ordered list of roots to measure in one run.
type Request struct {
	variant registry.Variant
	roots   []registry.Descriptor
}

// NewRequest resolves names against reg. No names selects every root in
// registry order. Names keep their given order; repeats are measured
// repeatedly.
func NewRequest(reg registry.Registry, names []string) (*Request, error) {
	req := &Request{variant: reg.Variant()}

	if len(names) == 0 {
		req.roots = reg.All()
	} else {
		req.roots = make([]registry.Descriptor, 0, len(names))
		for _, name := range names {
			d, err := reg.Lookup(name)
			if err != nil {
				return nil, &ConfigurationError{
					Variant: reg.Variant(),
					Name:    name,
					Valid:   reg.Names(),
					Err:     err,
				}
			}
			req.roots = append(req.roots, d)
		}
	}

	if len(req.roots) == 0 {
		return nil, &ConfigurationError{Variant: reg.Variant(), Valid: reg.Names(), Err: ErrEmptySelection}
	}
	return req, nil
}

// ResolveVariant parses a variant name and returns its registry.
func ResolveVariant(name string) (registry.Registry, error) {
	valid := make([]string, 0, len(registry.Variants()))
	for _, v := range registry.Variants() {
		valid = append(valid, string(v))
	}

	v, err := registry.ParseVariant(name)
	if err != nil {
		return nil, &ConfigurationError{Name: strings.TrimSpace(name), Valid: valid, Err: err}
	}
	reg, err := registry.ForVariant(v)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownVariant) {
			return nil, &ConfigurationError{Name: name, Valid: valid, Err: err}
		}
		return nil, err
	}
	return reg, nil
}

// Variant returns the variant the request was resolved for.
func (r *Request) Variant() registry.Variant { return r.variant }

// Roots returns the requested roots in order.
func (r *Request) Roots() []registry.Descriptor {
	out := make([]registry.Descriptor, len(r.roots))
	copy(out, r.roots)
	return out
}

// Len returns the number of requested roots.
func (r *Request) Len() int { return len(r.roots) }
