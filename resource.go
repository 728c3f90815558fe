package rfs

import (
	"fmt"
	"path"
	"strings"
)

// Resource identifies a file or directory addressed through the service.
// It mirrors a URI's five components; parsing here is deliberately
// minimal — splitting scheme/authority/path/query/fragment well enough to
// dispatch and key on — and is not a general URI-transformation library.
type Resource struct {
	Scheme    string
	Authority string
	Path      string
	Query     string
	Fragment  string
}

// ParseResource splits raw into its five URI components. It accepts both
// "scheme://authority/path" and "scheme:/path" forms.
func ParseResource(raw string) (Resource, error) {
	schemeIdx := strings.Index(raw, ":")
	if schemeIdx <= 0 {
		return Resource{}, fmt.Errorf("rfs: %q has no scheme", raw)
	}
	r := Resource{Scheme: raw[:schemeIdx]}
	rest := raw[schemeIdx+1:]

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		r.Fragment = rest[idx+1:]
		rest = rest[:idx]
	}
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		r.Query = rest[idx+1:]
		rest = rest[:idx]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			r.Authority = rest[:idx]
			rest = rest[idx:]
		} else {
			r.Authority = rest
			rest = "/"
		}
	}
	if rest == "" {
		rest = "/"
	}
	r.Path = path.Clean(rest)
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	return r, nil
}

// MustParseResource is ParseResource, panicking on error. Intended for
// literal resources in tests and command wiring.
func MustParseResource(raw string) Resource {
	r, err := ParseResource(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the resource back into its canonical URI string form.
func (r Resource) String() string {
	var b strings.Builder
	b.WriteString(r.Scheme)
	b.WriteString("://")
	b.WriteString(r.Authority)
	b.WriteString(r.Path)
	if r.Query != "" {
		b.WriteByte('?')
		b.WriteString(r.Query)
	}
	if r.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(r.Fragment)
	}
	return b.String()
}

// IsEqual reports whether two resources have identical canonical string
// forms (spec.md §3: "equivalent if their canonical string forms match").
func (r Resource) IsEqual(other Resource) bool {
	return r.String() == other.String()
}

// Dirname returns the resource for the parent directory of r's path.
func (r Resource) Dirname() Resource {
	r.Path = path.Dir(r.Path)
	return r
}

// Basename returns the last path segment of r.
func (r Resource) Basename() string {
	return path.Base(r.Path)
}

// Join returns a new resource with name appended to r's path.
func (r Resource) Join(name string) Resource {
	r.Path = path.Join(r.Path, name)
	return r
}

// IsRoot reports whether r addresses the root of its authority.
func (r Resource) IsRoot() bool {
	return r.Path == "/" || r.Path == ""
}

// IsAbsolute reports whether r.Path is an absolute path, as required by
// withProvider (spec.md §4.1: "requires resource.path absolute").
func (r Resource) IsAbsolute() bool {
	return strings.HasPrefix(r.Path, "/")
}

// isAncestorOrEqual reports whether r is an ancestor of, or equal to,
// other, comparing path segments rather than raw strings so that "/a" is
// not mistaken for an ancestor of "/ab".
func (r Resource) isAncestorOrEqual(other Resource, caseSensitive bool) bool {
	a, b := r.Path, other.Path
	if !caseSensitive {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	if a == b {
		return true
	}
	if a == "/" {
		return true
	}
	return strings.HasPrefix(b, a+"/")
}

// CanonicalKey returns the URI string form of resource, lowercased iff
// the provider lacks PathCaseSensitive (spec.md §3).
func CanonicalKey(p Provider, resource Resource) string {
	key := resource.String()
	if !p.Capabilities().Has(PathCaseSensitive) {
		key = strings.ToLower(key)
	}
	return key
}
