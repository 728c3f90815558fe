package rfs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// registration holds a registered provider and the subscriptions the
// registry made on its behalf, so Registry.Register's returned handle
// can tear them down again (spec.md §4.1).
type registration struct {
	scheme string
	p      Provider
	subs   []Disposable
}

// Registry maps scheme to Provider (spec.md §4.1). It is a partial
// function: a scheme may be bound by at most one provider at a time.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*registration

	onDidChangeRegistrations *Emitter[ProviderRegistrationEvent]
	onWillActivate           *Emitter[*ActivationEvent]
	onDidChangeCapabilities  *Emitter[Resource]
	onFileChanges            *Emitter[[]FileChangeEvent]
	onError                  *Emitter[ErrorEvent]
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:                     make(map[string]*registration),
		onDidChangeRegistrations: NewEmitter[ProviderRegistrationEvent](),
		onWillActivate:           NewEmitter[*ActivationEvent](),
		onDidChangeCapabilities:  NewEmitter[Resource](),
		onFileChanges:            NewEmitter[[]FileChangeEvent](),
		onError:                  NewEmitter[ErrorEvent](),
	}
}

// Register binds provider to scheme. It fails if scheme is already
// bound. The returned handle, when disposed, unregisters the provider
// and tears down the subscriptions Register made on its behalf.
func (r *Registry) Register(scheme string, p Provider) (Disposable, error) {
	r.mu.Lock()
	if _, exists := r.byID[scheme]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("rfs: scheme %q already has a registered provider", scheme)
	}
	reg := &registration{scheme: scheme, p: p}

	reg.subs = append(reg.subs, p.OnDidChangeFile().Subscribe(func(events []FileChangeEvent) {
		r.onFileChanges.Fire(events)
	}))
	reg.subs = append(reg.subs, p.OnDidChangeCapabilities().Subscribe(func(Capability) {
		r.onDidChangeCapabilities.Fire(Resource{Scheme: scheme})
	}))
	if errEmitter := p.OnDidErrorOccur(); errEmitter != nil {
		reg.subs = append(reg.subs, errEmitter.Subscribe(func(err error) {
			r.onError.Fire(ErrorEvent{Op: "provider", Resource: Resource{Scheme: scheme}, Err: err})
		}))
	}

	r.byID[scheme] = reg
	r.mu.Unlock()

	r.onDidChangeRegistrations.Fire(ProviderRegistrationEvent{Scheme: scheme, Added: true})

	var once sync.Once
	return DisposableFunc(func() {
		once.Do(func() {
			r.mu.Lock()
			if r.byID[scheme] == reg {
				delete(r.byID, scheme)
			}
			r.mu.Unlock()
			for _, sub := range reg.subs {
				sub.Dispose()
			}
			r.onDidChangeRegistrations.Fire(ProviderRegistrationEvent{Scheme: scheme, Added: false})
		})
	}), nil
}

// Activate fires OnWillActivateFileSystemProvider and waits for every
// listener-joined function to settle before returning, per spec.md
// §4.1: "awaits any promises joined by listeners... if a provider is now
// registered, returns; otherwise returns (lookup will fail)."
func (r *Registry) Activate(ctx context.Context, scheme string) {
	ev := &ActivationEvent{Scheme: scheme}
	r.onWillActivate.Fire(ev)
	ev.wait()
}

// lookup returns the provider bound to scheme, if any.
func (r *Registry) lookup(scheme string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byID[scheme]
	if !ok {
		return nil, false
	}
	return reg.p, true
}

// WithProvider activates resource's scheme and returns the bound
// provider, or a taxonomy error (spec.md §4.1).
func (r *Registry) WithProvider(ctx context.Context, resource Resource) (Provider, error) {
	if !resource.IsAbsolute() {
		return nil, NewError(CodeFileInvalidPath, "withProvider", resource, errors.New("path is not absolute"))
	}
	if p, ok := r.lookup(resource.Scheme); ok {
		return p, nil
	}
	r.Activate(ctx, resource.Scheme)
	if p, ok := r.lookup(resource.Scheme); ok {
		return p, nil
	}
	return nil, NewError(CodeNoProvider, "withProvider", resource, fmt.Errorf("no provider registered for scheme %q", resource.Scheme))
}

// HasCapability reports whether the provider bound to scheme exposes
// cap. It returns false for an unregistered scheme.
func (r *Registry) HasCapability(scheme string, cap Capability) bool {
	p, ok := r.lookup(scheme)
	if !ok {
		return false
	}
	return p.Capabilities().Has(cap)
}

// CanHandleResource reports whether some provider is currently
// registered for resource's scheme.
func (r *Registry) CanHandleResource(resource Resource) bool {
	_, ok := r.lookup(resource.Scheme)
	return ok
}

// Events exposes the registry's event bus.
func (r *Registry) OnDidChangeFileSystemProviderRegistrations() *Emitter[ProviderRegistrationEvent] {
	return r.onDidChangeRegistrations
}
func (r *Registry) OnWillActivateFileSystemProvider() *Emitter[*ActivationEvent] { return r.onWillActivate }
func (r *Registry) OnDidChangeFileSystemProviderCapabilities() *Emitter[Resource] {
	return r.onDidChangeCapabilities
}
func (r *Registry) OnFileChanges() *Emitter[[]FileChangeEvent] { return r.onFileChanges }
func (r *Registry) OnError() *Emitter[ErrorEvent]              { return r.onError }

// Dispose unregisters every provider and tears down their subscriptions.
func (r *Registry) Dispose() {
	r.mu.Lock()
	regs := make([]*registration, 0, len(r.byID))
	for _, reg := range r.byID {
		regs = append(regs, reg)
	}
	r.byID = make(map[string]*registration)
	r.mu.Unlock()

	for _, reg := range regs {
		for _, sub := range reg.subs {
			sub.Dispose()
		}
		r.onDidChangeRegistrations.Fire(ProviderRegistrationEvent{Scheme: reg.scheme, Added: false})
	}
}
