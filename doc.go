// Package rfs implements a virtual filesystem service: a uniform,
// scheme-addressed façade over a pluggable set of filesystem providers.
//
// Callers issue resource-addressed operations (Resolve, ReadFile,
// ReadFileStream, WriteFile, CreateFile, Move, Copy, Delete, CreateFolder,
// Watch) against opaque resources of the form scheme://authority/path. The
// Service dispatches each call to the Provider registered for that scheme,
// adapting between the provider's declared Capabilities and the requested
// operation.
//
// Concrete providers, higher-level consumers (editors, CLIs, mount points)
// and URI transformation are external to this package; see internal/
// memprovider, internal/localprovider and cmd/ for examples that exercise
// it.
package rfs
