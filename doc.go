// Package nativebridge generates and checks the glue between a managed
// runtime and native Go code that follows the JNI calling convention.
//
// A unit of native declarations, read from a TOML manifest or from annotated
// Go source, is turned into cgo adapter functions with mangled exported
// symbols or a registration table, plus the lifecycle hooks the runtime
// calls on load and unload. The same declarations are written out as a
// declaration set, so another build can verify that every member it expects
// has exactly one compatible implementation.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	nativebridge/
//	├── mutf8/           Modified UTF-8 string codec
//	├── protocol/        Version constants, class names, platform conventions
//	├── descriptor/      Source types to type descriptors and handle types
//	├── mangle/          Member names to exported symbol names
//	├── decl/            Declarations, units, manifests, declaration sets
//	├── glue/            Planning and emission of adapter source
//	├── verify/          Expectation/actual contract checking
//	├── symcheck/        Export checks on compiled libraries
//	├── frontend/gosrc/  Declarations from //bridge: directives in Go code
//	├── config/          TOML and environment configuration
//	├── pipeline/        Parallel per-unit generation and artifact output
//	├── errors/          Structured error types for diagnostics
//	└── cmd/bridgegen/   Command-line driver
//
// # Quick Start
//
// Generate glue for a manifest and check a consumer's expectations:
//
//	bridgegen generate -decls calc.toml -out gen
//	bridgegen verify -expect consumer.toml -actual gen/calc.bridgeset
//
// Or from Go:
//
//	m, err := decl.LoadManifest("calc.toml")
//	u, diags := m.Unit()
//	out, err := pipeline.Generate(ctx, u, pipeline.Options{})
//	_, err = pipeline.Write(ctx, out, "gen", "")
//
// # Error Handling
//
// Errors are returned as *errors.Error carrying a phase, a kind and the
// source location of the declaration involved. Problems local to one
// declaration are collected in an errors.List and the rest of the unit is
// still processed; only unit-wide problems stop generation.
package nativebridge
