// Package ifpsdump decodes and disassembles IFPS bytecode containers: the
// compiled form produced by an embedded Pascal-like scripting runtime
// historically used by installer-authoring tools.
//
// # Architecture Overview
//
// The module is organized the way a small binary-format toolchain usually
// is: a byte-level primitive, a decoder built on it, a static analyzer, and
// a formatter, with the ambient concerns (errors, logging) factored out.
//
//	ifpsdump/                 this package: module-level documentation only
//	├── bytecode/             decoder, analyzer, variable cells, disassembler
//	│   └── internal/reader/  byte-oriented reader primitive
//	├── errs/                 structured error types (Phase + Kind)
//	├── internal/ifpslog/     zap logger singleton
//	└── cmd/ifpsdump/         CLI + interactive TUI front end
//
// # Quick Start
//
//	data, err := os.ReadFile("script.ifps")
//	if err != nil {
//		log.Fatal(err)
//	}
//	unit, err := bytecode.ParseUnit(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	out, err := unit.Disassemble()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(out)
//
// # Scope
//
// The core decodes the container and statically analyzes its function
// bodies (basic blocks, an inferred operand-stack depth at every
// instruction). It does not execute the decoded bytecode, and it does not
// attempt to re-link forward references beyond the two explicit second
// passes (Call-target resolution, jump-target marking) the format itself
// requires.
//
// # Thread Safety
//
// A *bytecode.Unit is safe for concurrent reads once ParseUnit returns.
// Per-function basic-block maps are computed lazily on first access and
// cached; that laziness assumes single-threaded access to a given function,
// matching the single-threaded decode pass that built the unit.
package ifpsdump
