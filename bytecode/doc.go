// Package bytecode implements the IFPS container format: header, type
// table, function table, variable table, instruction stream, control-flow
// reconstruction, and the deterministic disassembly formatter.
//
// ParseUnit is the single entry point; everything else hangs off the
// returned *Unit.
package bytecode
