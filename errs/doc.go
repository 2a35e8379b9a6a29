// Package errs provides the structured error type used across the ifpsdump
// core: a container/body decode failure, an analysis failure, a formatter
// failure, or a variable-cell access failure.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Use the Builder for structured construction:
//
//	err := errs.New(errs.PhaseDecode, errs.KindBadMagic).
//		Detail("got %x", magic).
//		Build()
//
// or one of the convenience constructors for the common cases
// (errs.TruncatedHeader, errs.UnknownOpcode, ...). All errors implement the
// standard error interface and support errors.Is/As.
package errs
