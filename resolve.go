package rfs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// resolveFanOut bounds how many directory children resolve() stats or
// descends into concurrently, the Go rendition of spec.md §2's "fans
// stat traversal out to the provider while limiting recursion".
const resolveFanOut = 8

// Resolve returns the FileStat tree rooted at target (spec.md §4.2).
func (s *Service) Resolve(ctx context.Context, target Resource, opts ResolveOptions) (FileStat, error) {
	provider, err := s.registry.WithProvider(ctx, target)
	if err != nil {
		return FileStat{}, err
	}

	stat, err := provider.Stat(ctx, target)
	if err != nil {
		mapped := MapProviderError("resolve", target, err)
		return FileStat{}, mapped
	}
	stat.Resource = target
	if stat.Name == "" {
		stat.Name = target.Basename()
	}

	trie := newPathTrie()
	trie.insert(target.Path)
	for _, extra := range opts.ResolveTo {
		trie.insert(extra.Path)
	}

	if stat.IsDirectory {
		children, err := s.expandChildren(ctx, provider, target, trie, opts)
		if err != nil {
			s.events.onError.Fire(ErrorEvent{Op: "resolve", Resource: target, Err: err})
		}
		stat.Children = children
	}
	return stat, nil
}

// expandChildren lists resource's directory and recursively expands the
// children the trie or the single-child heuristic says are of interest.
// A readdir failure yields an empty (not failing) child list; a failure
// statting one specific child is logged and dropped, never propagated
// (spec.md §4.2).
func (s *Service) expandChildren(ctx context.Context, provider Provider, resource Resource, trie *pathTrie, opts ResolveOptions) ([]FileStat, error) {
	entries, err := provider.ReadDir(ctx, resource)
	if err != nil {
		return []FileStat{}, err
	}

	singleChild := opts.ResolveSingleChildDescendants && len(entries) == 1

	results := make([]FileStat, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveFanOut)

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			child := resource.Join(entry.Name)
			stat := FileStat{
				Resource:       child,
				Name:           entry.Name,
				IsFile:         entry.IsFile,
				IsDirectory:    entry.IsDirectory,
				IsSymbolicLink: entry.IsSymbolicLink,
			}

			if opts.ResolveMetadata {
				full, statErr := provider.Stat(gctx, child)
				if statErr != nil {
					s.loggerForResolve().Debug("dropping child %s: %v", child, statErr)
					results[i] = FileStat{}
					return nil
				}
				full.Resource = child
				full.Name = entry.Name
				stat = full
			}

			if stat.IsDirectory && (trie.hasAtOrBeneath(child.Path) || singleChild) {
				grandchildren, err := s.expandChildren(gctx, provider, child, trie, opts)
				if err != nil {
					s.loggerForResolve().Debug("listing %s failed, leaving empty: %v", child, err)
					grandchildren = []FileStat{}
				}
				stat.Children = grandchildren
			}

			results[i] = stat
			return nil
		})
	}
	_ = g.Wait() // errors are already coalesced per-child above

	out := results[:0]
	for _, r := range results {
		if r.Resource.Path == "" && r.Name == "" && !r.IsFile && !r.IsDirectory {
			continue // dropped child
		}
		out = append(out, r)
	}
	return out, nil
}

// ResolveAll runs Resolve independently for each entry; no individual
// failure propagates to the caller (spec.md §4.2).
func (s *Service) ResolveAll(ctx context.Context, targets []Resource, opts ResolveOptions) []ResolveResult {
	results := make([]ResolveResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveFanOut)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			stat, err := s.Resolve(gctx, target, opts)
			if err != nil {
				s.loggerForResolve().Debug("resolveAll: %s failed: %v", target, err)
				results[i] = ResolveResult{Success: false}
				return nil
			}
			results[i] = ResolveResult{Stat: stat, Success: true}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Exists reports whether target currently resolves without error
// (spec.md §4.2).
func (s *Service) Exists(ctx context.Context, target Resource) bool {
	provider, err := s.registry.WithProvider(ctx, target)
	if err != nil {
		return false
	}
	_, err = provider.Stat(ctx, target)
	return err == nil
}
