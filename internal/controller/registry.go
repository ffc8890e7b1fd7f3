package controller

import (
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry maps brand identifiers to concrete adapter instances.
//
// It is populated once at startup, with no runtime reflection or dynamic
// loading, and read for the lifetime of the process.
//
// All public methods are thread-safe.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Brand]Adapter
	logger   Logger
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Brand]Adapter),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds an adapter under its own brand.
// Registering the same brand twice is a programming error and is rejected.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	brand := a.Brand()
	if _, exists := r.adapters[brand]; exists {
		return fmt.Errorf("controller: brand %s already registered", brand)
	}

	r.adapters[brand] = a
	r.logger.Info("adapter registered", "brand", string(brand))
	return nil
}

// Get returns the adapter for a brand.
// Returns ErrUnknownBrand when no adapter is registered. Note that a
// registered stub brand does NOT hit this path; stubs are found normally
// and report ErrNotImplemented from their own operations.
func (r *Registry) Get(brand Brand) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[brand]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBrand, brand)
	}
	return a, nil
}

// Brands returns all registered brand identifiers, sorted.
func (r *Registry) Brands() []Brand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	brands := make([]Brand, 0, len(r.adapters))
	for b := range r.adapters {
		brands = append(brands, b)
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i] < brands[j] })
	return brands
}

// BrandInfo describes one registered brand for integration listings.
type BrandInfo struct {
	Brand       Brand `json:"brand"`
	Implemented bool  `json:"implemented"`
}

// ImplementationReporter is optionally implemented by adapters whose brand
// is registered ahead of a working integration. Stubs return false;
// adapters that do not implement it are assumed live.
type ImplementationReporter interface {
	Implemented() bool
}

// List returns every registered brand with its implementation status,
// sorted by brand, so callers can enumerate integrations without probing
// each adapter's operations.
func (r *Registry) List() []BrandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]BrandInfo, 0, len(r.adapters))
	for b, a := range r.adapters {
		implemented := true
		if rep, ok := a.(ImplementationReporter); ok {
			implemented = rep.Implemented()
		}
		infos = append(infos, BrandInfo{Brand: b, Implemented: implemented})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Brand < infos[j].Brand })
	return infos
}
