// Package errors provides structured diagnostics for the binding generator.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the declaration path, source location,
// source type spelling, protocol descriptor and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindUnresolvedType).
//		Path("io.example.Widget", "size").
//		At(loc).
//		SourceType("T").
//		Detail("type parameter has no runtime mapping").
//		Build()
//
// Or use convenience constructors for the taxonomy:
//
//	err := errors.HooksRequired("native")
//	err := errors.UnresolvedType(path, "T", "no mapping")
//
// Passes that must report everything before failing (the contract verifier,
// per-declaration generation) collect into a List and fail only afterwards.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
