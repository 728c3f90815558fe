package rfs

import (
	"context"

	"rfs/internal/logging"
)

// Service is the virtual filesystem façade: a uniform, scheme-addressed
// entry point dispatching to whichever Provider is registered for a
// resource's scheme (spec.md §1, §6).
type Service struct {
	registry   *Registry
	writeQueue *writeQueueTable
	watchers   *watcherTable
	logger     *logging.Logger
	events     *serviceEvents
}

// serviceEvents bundles the emitters that are not already owned by the
// registry (spec.md §2 "event bus" + §6 event list). onError forwards the
// registry's own bus so there is one stream regardless of whether the
// failure originated in registration, activation, or a pipeline.
type serviceEvents struct {
	onAfterOperation *Emitter[OperationEvent]
	onError          *Emitter[ErrorEvent]
}

func newServiceEvents(r *Registry) *serviceEvents {
	return &serviceEvents{
		onAfterOperation: NewEmitter[OperationEvent](),
		onError:          r.OnError(),
	}
}

// NewService constructs a Service with an empty provider registry and no
// active watchers or queued writes.
func NewService() *Service {
	registry := NewRegistry()
	return &Service{
		registry:   registry,
		writeQueue: newWriteQueueTable(),
		watchers:   newWatcherTable(),
		logger:     logging.GetLogger().WithPrefix("service"),
		events:     newServiceEvents(registry),
	}
}

// loggerFor returns a logger scoped to component, e.g. "resolve" or
// "write", the structured analogue of the teacher's per-file WithPrefix
// loggers.
func (s *Service) loggerFor(component string) *logging.Logger {
	return s.logger.WithPrefix(component)
}

func (s *Service) loggerForResolve() *logging.Logger { return s.loggerFor("resolve") }
func (s *Service) loggerForWrite() *logging.Logger   { return s.loggerFor("write") }
func (s *Service) loggerForRead() *logging.Logger    { return s.loggerFor("read") }
func (s *Service) loggerForMoveCopy() *logging.Logger { return s.loggerFor("movecopy") }
func (s *Service) loggerForDelete() *logging.Logger  { return s.loggerFor("delete") }

// RegisterProvider binds provider to scheme (spec.md §4.1).
func (s *Service) RegisterProvider(scheme string, provider Provider) (Disposable, error) {
	return s.registry.Register(scheme, provider)
}

// ActivateProvider fires the activation event for scheme and waits for
// any listener-joined work to settle (spec.md §4.1).
func (s *Service) ActivateProvider(ctx context.Context, scheme string) {
	s.registry.Activate(ctx, scheme)
}

// CanHandleResource reports whether some provider is registered for
// resource's scheme.
func (s *Service) CanHandleResource(resource Resource) bool {
	return s.registry.CanHandleResource(resource)
}

// HasCapability reports whether the provider bound to scheme exposes cap.
func (s *Service) HasCapability(scheme string, cap Capability) bool {
	return s.registry.HasCapability(scheme, cap)
}

// OnDidChangeFileSystemProviderRegistrations fires whenever a provider is
// registered or unregistered.
func (s *Service) OnDidChangeFileSystemProviderRegistrations() *Emitter[ProviderRegistrationEvent] {
	return s.registry.OnDidChangeFileSystemProviderRegistrations()
}

// OnWillActivateFileSystemProvider fires when activation is requested.
func (s *Service) OnWillActivateFileSystemProvider() *Emitter[*ActivationEvent] {
	return s.registry.OnWillActivateFileSystemProvider()
}

// OnDidChangeFileSystemProviderCapabilities fires when a registered
// provider reports a capability change.
func (s *Service) OnDidChangeFileSystemProviderCapabilities() *Emitter[Resource] {
	return s.registry.OnDidChangeFileSystemProviderCapabilities()
}

// OnAfterOperation fires once a mutating call (create/write/delete/move/
// copy) completes successfully.
func (s *Service) OnAfterOperation() *Emitter[OperationEvent] { return s.events.onAfterOperation }

// OnFileChanges re-emits every registered provider's own file-change
// notifications.
func (s *Service) OnFileChanges() *Emitter[[]FileChangeEvent] { return s.registry.OnFileChanges() }

// OnError fires when a registered provider reports an out-of-band error
// or when Resolve fails to list a directory; other failed operations
// return their error to the caller without firing it.
func (s *Service) OnError() *Emitter[ErrorEvent] { return s.events.onError }

// Watch subscribes to changes under resource, multiplexing duplicate
// (provider, resource, options) subscriptions behind one underlying call
// (spec.md §4.8).
func (s *Service) Watch(ctx context.Context, resource Resource, opts WatchOptions) (Disposable, error) {
	provider, err := s.registry.WithProvider(ctx, resource)
	if err != nil {
		return nil, err
	}
	return s.watchers.watch(ctx, provider, resource, opts), nil
}

// Dispose tears down every active watcher and unregisters every provider,
// releasing the subscriptions the registry made on their behalf (spec.md
// §4.8 "Service disposal disposes all active watchers and clears the
// table").
func (s *Service) Dispose() {
	s.watchers.dispose()
	s.registry.Dispose()
}

// fireAfterOperation emits OnAfterOperation with the given kind and
// stat, recording prior for MOVE/COPY/DELETE's source resource.
func (s *Service) fireAfterOperation(kind OperationKind, stat FileStat, prior Resource) {
	s.events.onAfterOperation.Fire(OperationEvent{Kind: kind, Stat: stat, Prior: prior})
}
