package rfs

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// watchEntry tracks one active (provider, resource, recursive, excludes)
// subscription, reference-counted across however many handles share its
// key (spec.md §4.8).
type watchEntry struct {
	mu            sync.Mutex
	key           string
	table         *watcherTable
	count         int
	disposable    Disposable
	ready         bool
	disposedEarly bool
}

// watcherTable multiplexes watch subscriptions: N handles sharing a key
// cause exactly one underlying provider.Watch call.
type watcherTable struct {
	mu      sync.Mutex
	entries map[string]*watchEntry
}

func newWatcherTable() *watcherTable {
	return &watcherTable{entries: make(map[string]*watchEntry)}
}

func watchKey(p Provider, resource Resource, opts WatchOptions) string {
	excludes := append([]string(nil), opts.Excludes...)
	sort.Strings(excludes)
	var b strings.Builder
	b.WriteString(CanonicalKey(p, resource))
	b.WriteByte('|')
	if opts.Recursive {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(excludes, ","))
	return b.String()
}

// watch registers interest in (resource, opts) against provider,
// invoking the underlying Watch at most once per key regardless of how
// many callers ask. provider.Watch runs on its own goroutine so a
// handle disposed before the subscription resolves still results in
// exactly one Dispose of the eventual disposable (spec.md §3 invariants,
// §4.8).
func (t *watcherTable) watch(ctx context.Context, provider Provider, resource Resource, opts WatchOptions) Disposable {
	key := watchKey(provider, resource, opts)

	t.mu.Lock()
	if e, ok := t.entries[key]; ok {
		e.mu.Lock()
		e.count++
		e.mu.Unlock()
		t.mu.Unlock()
		return newWatchHandle(e)
	}
	e := &watchEntry{key: key, table: t, count: 1}
	t.entries[key] = e
	t.mu.Unlock()

	go func() {
		disposable, err := provider.Watch(ctx, resource, opts)

		e.mu.Lock()
		if err != nil {
			dead := e.count == 0
			e.mu.Unlock()
			if dead {
				t.mu.Lock()
				if t.entries[key] == e {
					delete(t.entries, key)
				}
				t.mu.Unlock()
			}
			return
		}

		e.disposable = disposable
		e.ready = true
		disposeNow := e.disposedEarly
		e.mu.Unlock()

		if disposeNow {
			disposable.Dispose()
			t.mu.Lock()
			if t.entries[key] == e {
				delete(t.entries, key)
			}
			t.mu.Unlock()
		}
	}()

	return newWatchHandle(e)
}

// watchHandle is the Disposable returned to callers. Disposal decrements
// the shared entry's refcount exactly once, even if called multiple
// times (spec.md §3: "A watch handle, once disposed, decrements the
// refcount exactly once").
type watchHandle struct {
	once sync.Once
	e    *watchEntry
}

func newWatchHandle(e *watchEntry) *watchHandle {
	return &watchHandle{e: e}
}

func (h *watchHandle) Dispose() {
	h.once.Do(func() {
		e := h.e
		e.mu.Lock()
		e.count--
		if e.count > 0 {
			e.mu.Unlock()
			return
		}
		if !e.ready {
			// provider.Watch hasn't resolved yet; mark for disposal once
			// it does, and leave the table entry in place so the
			// in-flight goroutine can still find it.
			e.disposedEarly = true
			e.mu.Unlock()
			return
		}
		d := e.disposable
		e.mu.Unlock()
		if d != nil {
			d.Dispose()
		}
		e.table.mu.Lock()
		if e.table.entries[e.key] == e {
			delete(e.table.entries, e.key)
		}
		e.table.mu.Unlock()
	})
}

// dispose tears down every active watcher, as Service.Dispose requires
// (spec.md §4.8: "Service disposal disposes all active watchers and
// clears the table").
func (t *watcherTable) dispose() {
	t.mu.Lock()
	entries := make([]*watchEntry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.entries = make(map[string]*watchEntry)
	t.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		ready, disposable := e.ready, e.disposable
		if !ready {
			e.disposedEarly = true
		}
		e.mu.Unlock()
		if ready && disposable != nil {
			disposable.Dispose()
		}
	}
}
