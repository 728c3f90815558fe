package rfs

import (
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestMapProviderErrorKnownSentinels(t *testing.T) {
	r := MustParseResource("mem://h/a")
	cases := []struct {
		in   error
		want Code
	}{
		{ErrProviderNotFound, CodeFileNotFound},
		{ErrProviderIsDirectory, CodeFileIsDirectory},
		{ErrProviderNotDirectory, CodeFileNotDirectory},
		{ErrProviderNoPermissions, CodeFilePermissionDenied},
		{ErrProviderUnavailable, CodeFilePermissionDenied},
		{errors.New("boom"), CodeUnknown},
	}
	for _, c := range cases {
		got := MapProviderError("op", r, c.in)
		if got.Code != c.want {
			t.Errorf("MapProviderError(%v).Code = %v, want %v", c.in, got.Code, c.want)
		}
	}
}

func TestMapProviderErrorPassesThroughExistingTaxonomyError(t *testing.T) {
	r := MustParseResource("mem://h/a")
	original := NewError(CodeFileMoveConflict, "move", r, nil)
	got := MapProviderError("move", r, original)
	if got != original {
		t.Error("expected an already-tagged *Error to pass through unchanged")
	}
}

func TestMapProviderErrorUnwrapsWrappedSentinel(t *testing.T) {
	r := MustParseResource("mem://h/a")
	wrapped := pkgerrors.Wrap(ErrProviderNotFound, "stat failed")
	got := MapProviderError("stat", r, wrapped)
	if got.Code != CodeFileNotFound {
		t.Errorf("Code = %v, want CodeFileNotFound", got.Code)
	}
}

func TestErrorIsMatchesOnCode(t *testing.T) {
	r := MustParseResource("mem://h/a")
	e1 := NewError(CodeFileNotFound, "op1", r, errors.New("x"))
	e2 := NewError(CodeFileNotFound, "op2", r, nil)
	if !errors.Is(e1, e2) {
		t.Error("expected errors with the same code to match via errors.Is")
	}

	e3 := NewError(CodeFileIsDirectory, "op3", r, nil)
	if errors.Is(e1, e3) {
		t.Error("did not expect errors with different codes to match")
	}
}

func TestErrorMarshalJSON(t *testing.T) {
	r := MustParseResource("mem://h/a/b")
	e := NewError(CodeFileNotFound, "readFile", r, errors.New("underlying"))

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["code"] != string(CodeFileNotFound) {
		t.Errorf("code = %v, want %v", decoded["code"], CodeFileNotFound)
	}
	if decoded["op"] != "readFile" {
		t.Errorf("op = %v, want readFile", decoded["op"])
	}
	if decoded["cause"] != "underlying" {
		t.Errorf("cause = %v, want underlying", decoded["cause"])
	}
}

func TestIsNotFoundAndIsExists(t *testing.T) {
	r := MustParseResource("mem://h/a")
	nf := MapProviderError("op", r, ErrProviderNotFound)
	if !isNotFound(nf) {
		t.Error("expected isNotFound to recognize a mapped not-found error")
	}
	if isNotFound(MapProviderError("op", r, ErrProviderExists)) {
		t.Error("did not expect isNotFound to match an exists error")
	}

	ex := MapProviderError("op", r, ErrProviderExists)
	if !isExists(ex) {
		t.Error("expected isExists to recognize a mapped exists error")
	}
}
