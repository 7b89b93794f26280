// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/huffman"
)

type compressCmd struct {
	// User-specified command line arguments.
	in, out string
}

func newCompressCmd() *ffcli.Command {
	cmd := compressCmd{}
	set := flag.NewFlagSet("compress", flag.ExitOnError)
	set.StringVar(&cmd.in, "in", "-", "Input file, - for stdin")
	set.StringVar(&cmd.out, "out", "-", "Output file, - for stdout")
	return &ffcli.Command{
		Name:       "compress",
		ShortUsage: "compress [flags]",
		ShortHelp:  "Compress a file",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *compressCmd) exec(context.Context, []string) (err error) {
	src, err := readInput(cmd.in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	enc, err := huffman.NewEncoder(src)
	if err != nil {
		return fmt.Errorf("failed to build code: %w", err)
	}

	out, err := createOutput(cmd.out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	n, err := enc.WriteTo(out)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Infof("Compressed %d bytes into %d bytes (%d payload bits)",
		len(src), n, enc.EncodedBits())
	return nil
}
