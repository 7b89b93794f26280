// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// basetrace runs a Huffman compression workload on several goroutines and
// records it as a Chrome trace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/base-framework/base/profiler"
	"github.com/base-framework/base/vc"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode(os.Args[1:])))
}

func mainWithExitCode(argv []string) exitCode {
	args, err := parseArgs(argv)
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}

	if args.version {
		fmt.Printf("%s\n", vc.Version())
		return exitSuccess
	}

	if args.verboseMode {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		args.dump()
	}

	if code := sanityCheck(args); code != exitSuccess {
		return code
	}

	// Context to drive the workload.
	mainCtx, mainCancel := signal.NotifyContext(context.Background(),
		unix.SIGINT, unix.SIGTERM)
	defer mainCancel()

	log.Infof("Starting basetrace %s (revision %s, build timestamp %s)",
		vc.Version(), vc.Revision(), vc.BuildTimestamp())

	cfg := profiler.DefaultConfig()
	cfg.OutputPath = args.output
	cfg.AutoFlushEvents = args.autoFlush
	cfg.StackSlots = args.stackSlots
	cfg.ProcessName = "basetrace"
	rec, err := profiler.Init(cfg)
	if err != nil {
		return failure("Failed to initialize profiler: %v", err)
	}
	rec.Metadata("main")

	stopProgress := func() {}
	if args.progress > 0 {
		stopProgress = startProgress(mainCtx, rec, args.progress)
	}
	wl := workload{workers: args.workers, rounds: args.rounds, bufferSize: args.bufferSize}
	stats, err := wl.run(mainCtx, rec)
	stopProgress()
	if err != nil {
		_ = profiler.Shutdown()
		return failure("Workload failed: %v", err)
	}

	if args.profileOutput != "" {
		if err = writeProfile(rec, args.profileOutput); err != nil {
			log.Errorf("Failed to write profile: %v", err)
		}
	}

	events := rec.NumberOfEvents()
	frames := rec.StackFrames().Stats()
	if err = profiler.Shutdown(); err != nil {
		return failure("Failed to write trace: %v", err)
	}

	log.Infof("Compressed %d bytes into %d bytes", stats.rawBytes.Load(), stats.encodedBytes.Load())
	log.Infof("Recorded %d events, %d stack frames (%d overflow traces), %d intermediate flushes",
		events, frames.Frames, frames.Overflow, stats.flushes)
	return exitSuccess
}

func writeProfile(rec *profiler.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = rec.WriteProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func sanityCheck(args *arguments) exitCode {
	if args.workers < 1 {
		return parseError("Invalid number of workers: %d", args.workers)
	}

	if args.rounds < 0 {
		return parseError("Invalid number of rounds: %d", args.rounds)
	}

	if args.bufferSize < 0 || args.bufferSize > maxArgBufferSize {
		return parseError("Buffer size %d exceeds limit (max: %d)",
			args.bufferSize, maxArgBufferSize)
	}

	if args.stackSlots < 1 || args.stackSlots > maxArgStackSlots {
		return parseError("Invalid stack slot table size: %d (max: %d)",
			args.stackSlots, maxArgStackSlots)
	}

	if args.progress < 0 {
		return parseError("Invalid progress interval: %v", args.progress)
	}

	if args.output == "" {
		return parseError("No trace output given")
	}

	return exitSuccess
}

func parseError(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
