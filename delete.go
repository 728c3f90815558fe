package rfs

import "context"

// Delete removes resource, honoring trash and recursion options
// (spec.md §4.7).
func (s *Service) Delete(ctx context.Context, resource Resource, opts DeleteOptions) error {
	const op = "delete"
	provider, err := s.registry.WithProvider(ctx, resource)
	if err != nil {
		return err
	}

	if opts.UseTrash && !hasTrash(provider.Capabilities()) {
		return MapProviderError(op, resource, ErrProviderUnavailable)
	}

	stat, err := provider.Stat(ctx, resource)
	if err != nil {
		return MapProviderError(op, resource, err)
	}

	if !opts.Recursive && stat.IsDirectory {
		entries, err := provider.ReadDir(ctx, resource)
		if err != nil {
			return MapProviderError(op, resource, err)
		}
		if len(entries) > 0 {
			return NewError(CodeFileIsDirectory, op, resource, nil)
		}
	}

	if err := provider.Delete(ctx, resource, opts); err != nil {
		return MapProviderError(op, resource, err)
	}

	s.fireAfterOperation(OperationDelete, stat, resource)
	return nil
}

// mkdirp walks upward from directory until it finds an existing
// directory ancestor, a non-directory (failure), or an error other than
// not-found (propagated), then creates every missing segment on the way
// back down (spec.md §4.7).
func mkdirp(ctx context.Context, provider Provider, directory Resource) error {
	var missing []Resource
	cur := directory
	for {
		stat, err := provider.Stat(ctx, cur)
		if err == nil {
			if !stat.IsDirectory {
				return NewError(CodeFileNotDirectory, "mkdirp", cur, nil)
			}
			break
		}
		if !isNotFound(err) {
			return err
		}
		missing = append(missing, cur)
		if cur.IsRoot() {
			break
		}
		cur = cur.Dirname()
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if err := provider.Mkdir(ctx, missing[i]); err != nil && !isExists(err) {
			return err
		}
	}
	return nil
}

// CreateFolder creates resource and every missing ancestor, then returns
// the resulting stat (spec.md §4.7: "createFolder(resource) wraps
// [mkdirp] and re-resolves").
func (s *Service) CreateFolder(ctx context.Context, resource Resource) (FileStat, error) {
	const op = "createFolder"
	provider, err := s.registry.WithProvider(ctx, resource)
	if err != nil {
		return FileStat{}, err
	}
	if err := mkdirp(ctx, provider, resource); err != nil {
		return FileStat{}, MapProviderError(op, resource, err)
	}
	stat, err := provider.Stat(ctx, resource)
	if err != nil {
		return FileStat{}, MapProviderError(op, resource, err)
	}
	stat.Resource = resource
	s.fireAfterOperation(OperationCreate, stat, Resource{})
	return stat, nil
}
