// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// huffman compresses and decompresses files with the canonical Huffman codec
// and inspects the symbol tables of compressed files.

package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	if err := newRootCmd().ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Fatalf("%v", err)
		}
	}
}

func newRootCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "huffman",
		ShortUsage: "huffman <subcommand> [flags]",
		ShortHelp:  "Tool for compressing files with canonical Huffman codes",
		Subcommands: []*ffcli.Command{
			newCompressCmd(),
			newDecompressCmd(),
			newInspectCmd(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

// readInput reads the named file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// createOutput creates the named file, or returns stdout for "-".
func createOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
