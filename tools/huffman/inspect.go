// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/base-framework/base/huffman"
)

type inspectCmd struct {
	// User-specified command line arguments.
	in string
}

func newInspectCmd() *ffcli.Command {
	cmd := inspectCmd{}
	set := flag.NewFlagSet("inspect", flag.ExitOnError)
	set.StringVar(&cmd.in, "in", "-", "Compressed input file, - for stdin")
	return &ffcli.Command{
		Name:       "inspect",
		ShortUsage: "inspect [flags]",
		ShortHelp:  "Print the symbol table of a compressed file",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *inspectCmd) exec(context.Context, []string) error {
	src, err := readInput(cmd.in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	dec, err := huffman.NewDecoder(src)
	if err != nil {
		return err
	}
	return printTable(os.Stdout, dec)
}

func printTable(w io.Writer, dec *huffman.Decoder) error {
	codes := dec.Codes()
	if _, err := fmt.Fprintf(w, "lengths %d..%d, %d symbols, %d garbage bits\n",
		dec.MinLength(), dec.MaxLength(), len(codes), dec.GarbageBits()); err != nil {
		return err
	}
	for _, c := range codes {
		code := strconv.FormatUint(c.Value, 2)
		code = strings.Repeat("0", int(c.Length)-len(code)) + code
		if _, err := fmt.Fprintf(w, "%-6s %2d %s\n",
			symbolName(c.Symbol), c.Length, code); err != nil {
			return err
		}
	}
	return nil
}

func symbolName(sym byte) string {
	if sym > ' ' && sym < 0x7f {
		return strconv.QuoteRune(rune(sym))
	}
	return fmt.Sprintf("0x%02x", sym)
}
