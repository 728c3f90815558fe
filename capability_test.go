package rfs

import "testing"

func TestCapabilityHas(t *testing.T) {
	c := FileReadWrite | Trash
	if !c.Has(FileReadWrite) {
		t.Error("expected FileReadWrite to be set")
	}
	if !c.Has(Trash) {
		t.Error("expected Trash to be set")
	}
	if c.Has(FileReadStream) {
		t.Error("did not expect FileReadStream to be set")
	}
}

func TestCapabilityPredicates(t *testing.T) {
	c := FileOpenReadWriteClose | FileFolderCopy | PathCaseSensitive | Readonly
	if !hasPositional(c) {
		t.Error("expected hasPositional")
	}
	if !hasNativeCopy(c) {
		t.Error("expected hasNativeCopy")
	}
	if !isCaseSensitive(c) {
		t.Error("expected isCaseSensitive")
	}
	if !isReadonly(c) {
		t.Error("expected isReadonly")
	}
	if hasTrash(c) {
		t.Error("did not expect hasTrash")
	}
	if hasUnbuffered(c) {
		t.Error("did not expect hasUnbuffered")
	}
	if hasStream(c) {
		t.Error("did not expect hasStream")
	}
}
