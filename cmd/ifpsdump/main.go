package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ifps-tools/ifpsdump/bytecode"
	"github.com/ifps-tools/ifpsdump/internal/ifpslog"
)

func main() {
	var (
		file        = flag.String("file", "", "Path to an IFPS bytecode container")
		codec       = flag.String("codec", "utf-8", "Text codec for String/PChar literals (utf-8, latin1)")
		list        = flag.Bool("list", false, "List types, globals, and functions, then exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			ifpslog.SetLogger(logger)
		}
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: ifpsdump -file <unit.bin> [-codec utf-8|latin1]")
		fmt.Fprintln(os.Stderr, "       ifpsdump -file <unit.bin> -list")
		fmt.Fprintln(os.Stderr, "       ifpsdump -file <unit.bin> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*file, *codec); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*file, *codec, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file, codec string, listOnly bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	unit, err := bytecode.ParseUnit(data, bytecode.WithCodec(codec))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	fmt.Printf("Unit: %s\n", file)
	fmt.Printf("Format version: %d\n", unit.Version)
	fmt.Printf("Types: %d\n", len(unit.Types))
	fmt.Printf("Functions: %d\n", len(unit.Functions))
	fmt.Printf("Globals: %d\n", len(unit.Variables))
	fmt.Printf("String literals: %d\n", len(unit.Strings))

	if listOnly {
		for _, t := range unit.Types {
			if t.Symbol != "" {
				fmt.Printf("  type   %s\n", t.Symbol)
			}
		}
		for _, v := range unit.Variables {
			fmt.Printf("  global %s: %s\n", v.Variant, v.Type)
		}
		for _, fn := range unit.Functions {
			fmt.Printf("  func   %s\n", fn.Reference())
		}
		return nil
	}

	out, err := unit.Disassemble()
	if err != nil {
		return fmt.Errorf("disassemble: %w", err)
	}
	fmt.Print(out)
	return nil
}
