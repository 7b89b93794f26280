// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/base-framework/base/huffman"
)

type decompressCmd struct {
	// User-specified command line arguments.
	in, out string
}

func newDecompressCmd() *ffcli.Command {
	cmd := decompressCmd{}
	set := flag.NewFlagSet("decompress", flag.ExitOnError)
	set.StringVar(&cmd.in, "in", "-", "Compressed input file, - for stdin")
	set.StringVar(&cmd.out, "out", "-", "Output file, - for stdout")
	return &ffcli.Command{
		Name:       "decompress",
		ShortUsage: "decompress [flags]",
		ShortHelp:  "Decompress a file",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *decompressCmd) exec(context.Context, []string) (err error) {
	src, err := readInput(cmd.in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	// Decode fully before creating the output so that invalid input leaves
	// no partial file behind.
	data, err := huffman.Decode(src)
	if err != nil {
		return err
	}

	out, err := createOutput(cmd.out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()
	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
