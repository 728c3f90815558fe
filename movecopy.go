package rfs

import (
	"context"
	"strings"
)

// moveCopyMode distinguishes the two entry points that share doMoveCopy.
type moveCopyMode int

const (
	modeCopy moveCopyMode = iota
	modeMove
)

// doValidateMoveCopy implements the relationship checks of spec.md §4.5.
// Source and target stringifying identically is a no-op, not a failure;
// everything else that would corrupt the tree (copying onto a
// differently-cased alias, moving a directory into itself, overwriting an
// ancestor of the source) fails with FILE_MOVE_CONFLICT.
func (s *Service) doValidateMoveCopy(ctx context.Context, srcProvider Provider, source Resource, tgtProvider Provider, target Resource, mode moveCopyMode, overwrite bool) (noop, differCase, targetExists bool, err error) {
	const op = "moveCopy"
	if source.IsEqual(target) {
		return true, false, false, nil
	}

	sameProvider := srcProvider == tgtProvider
	caseSensitive := isCaseSensitive(srcProvider.Capabilities())

	if sameProvider {
		differCase = !caseSensitive && strings.EqualFold(source.String(), target.String())
		if differCase && mode == modeCopy {
			return false, true, false, NewError(CodeFileMoveConflict, op, target, nil)
		}
		if !differCase && (target.isAncestorOrEqual(source, caseSensitive) || source.isAncestorOrEqual(target, caseSensitive)) {
			return false, false, false, NewError(CodeFileMoveConflict, op, target, nil)
		}
	}

	_, statErr := tgtProvider.Stat(ctx, target)
	targetExists = statErr == nil
	if targetExists && !differCase {
		if !overwrite {
			return false, differCase, targetExists, NewError(CodeFileMoveConflict, op, target, nil)
		}
		if sameProvider && source.isAncestorOrEqual(target, caseSensitive) {
			return false, differCase, targetExists, NewError(CodeFileMoveConflict, op, target, nil)
		}
	}
	return false, differCase, targetExists, nil
}

// doMoveCopy executes a validated move or copy, returning the mode that
// actually happened: a cross-provider move reports modeCopy, since it is
// implemented as copy-then-delete-source (spec.md §4.5).
func (s *Service) doMoveCopy(ctx context.Context, srcProvider Provider, source Resource, tgtProvider Provider, target Resource, mode moveCopyMode, overwrite bool) (moveCopyMode, FileStat, error) {
	const op = "moveCopy"

	noop, differCase, targetExists, err := s.doValidateMoveCopy(ctx, srcProvider, source, tgtProvider, target, mode, overwrite)
	if err != nil {
		return mode, FileStat{}, err
	}
	if noop {
		stat, err := srcProvider.Stat(ctx, source)
		if err != nil {
			return mode, FileStat{}, MapProviderError(op, source, err)
		}
		stat.Resource = source
		return mode, stat, nil
	}

	if targetExists && !differCase {
		if err := s.Delete(ctx, target, DeleteOptions{Recursive: true}); err != nil {
			return mode, FileStat{}, err
		}
	}

	if err := mkdirp(ctx, tgtProvider, target.Dirname()); err != nil {
		return mode, FileStat{}, MapProviderError(op, target, err)
	}

	switch mode {
	case modeCopy:
		if srcProvider == tgtProvider && hasNativeCopy(srcProvider.Capabilities()) {
			if err := srcProvider.Copy(ctx, source, target, CopyOptions{Overwrite: overwrite}); err != nil {
				return mode, FileStat{}, MapProviderError("copy", target, err)
			}
		} else if err := s.copyAcrossProviders(ctx, srcProvider, source, tgtProvider, target); err != nil {
			return mode, FileStat{}, MapProviderError("copy", target, err)
		}
		stat, err := tgtProvider.Stat(ctx, target)
		if err != nil {
			return mode, FileStat{}, MapProviderError("copy", target, err)
		}
		stat.Resource = target
		return modeCopy, stat, nil

	default: // modeMove
		if srcProvider == tgtProvider {
			if err := srcProvider.Rename(ctx, source, target, RenameOptions{Overwrite: overwrite}); err != nil {
				return mode, FileStat{}, MapProviderError("move", target, err)
			}
			stat, err := tgtProvider.Stat(ctx, target)
			if err != nil {
				return mode, FileStat{}, MapProviderError("move", target, err)
			}
			stat.Resource = target
			return modeMove, stat, nil
		}

		_, stat, err := s.doMoveCopy(ctx, srcProvider, source, tgtProvider, target, modeCopy, overwrite)
		if err != nil {
			return mode, FileStat{}, err
		}
		if err := s.Delete(ctx, source, DeleteOptions{Recursive: true}); err != nil {
			return mode, FileStat{}, err
		}
		return modeCopy, stat, nil
	}
}

// copyAcrossProviders recurses a directory tree, dispatching each file to
// the byte-pipe variant matching the two providers' capabilities
// (spec.md §4.5, §4.6).
func (s *Service) copyAcrossProviders(ctx context.Context, srcProvider Provider, source Resource, tgtProvider Provider, target Resource) error {
	stat, err := srcProvider.Stat(ctx, source)
	if err != nil {
		return err
	}
	if !stat.IsDirectory {
		return s.pipeFile(ctx, srcProvider, source, tgtProvider, target)
	}

	if err := tgtProvider.Mkdir(ctx, target); err != nil && !isExists(err) {
		return err
	}
	entries, err := srcProvider.ReadDir(ctx, source)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childSrc := source.Join(entry.Name)
		childDst := target.Join(entry.Name)
		if err := s.copyAcrossProviders(ctx, srcProvider, childSrc, tgtProvider, childDst); err != nil {
			return err
		}
	}
	return nil
}

// Move relocates source to target, firing MOVE when it rewrites a single
// provider's namespace in place and COPY when a cross-provider move had
// to copy then delete the source (spec.md §4.5).
func (s *Service) Move(ctx context.Context, source, target Resource, overwrite bool) (FileStat, error) {
	srcProvider, err := s.registry.WithProvider(ctx, source)
	if err != nil {
		return FileStat{}, err
	}
	tgtProvider, err := s.registry.WithProvider(ctx, target)
	if err != nil {
		return FileStat{}, err
	}

	mode, stat, err := s.doMoveCopy(ctx, srcProvider, source, tgtProvider, target, modeMove, overwrite)
	if err != nil {
		return FileStat{}, err
	}
	kind := OperationMove
	if mode == modeCopy {
		kind = OperationCopy
	}
	s.fireAfterOperation(kind, stat, source)
	return stat, nil
}

// Copy duplicates source at target, natively when the provider supports
// FileFolderCopy on an intra-provider copy, otherwise via the byte-pipe
// variants (spec.md §4.5, §4.6).
func (s *Service) Copy(ctx context.Context, source, target Resource, overwrite bool) (FileStat, error) {
	srcProvider, err := s.registry.WithProvider(ctx, source)
	if err != nil {
		return FileStat{}, err
	}
	tgtProvider, err := s.registry.WithProvider(ctx, target)
	if err != nil {
		return FileStat{}, err
	}

	_, stat, err := s.doMoveCopy(ctx, srcProvider, source, tgtProvider, target, modeCopy, overwrite)
	if err != nil {
		return FileStat{}, err
	}
	s.fireAfterOperation(OperationCopy, stat, source)
	return stat, nil
}
