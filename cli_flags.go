// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/profiler"
	"github.com/base-framework/base/profiler/stackframe"
)

const (
	// Default values for CLI flags
	defaultArgOutput     = "trace.json"
	defaultArgWorkers    = 4
	defaultArgRounds     = 8
	defaultArgBufferSize = 64 * 1024
	defaultArgAutoFlush  = profiler.DefaultAutoFlushEvents

	maxArgBufferSize = 64 * 1024 * 1024
	maxArgStackSlots = 1 << 22
)

// Help strings for command line arguments
var (
	outputHelp = "Trace output: a local path or s3://bucket/key. " +
		"A .zst or .gz suffix compresses the trace."
	workersHelp    = "Number of concurrent workers."
	roundsHelp     = "Number of rounds each worker runs."
	bufferSizeHelp = fmt.Sprintf("Size in bytes of the buffer each worker compresses "+
		"per round, max is %d.", maxArgBufferSize)
	autoFlushHelp = "Number of recorded events after which the trace is flushed " +
		"between rounds. Zero flushes only on exit."
	stackSlotsHelp    = fmt.Sprintf("Size of the stack trace slot table, max is %d.", maxArgStackSlots)
	profileOutputHelp = "Write the recorded samples as a pprof profile to this path."
	progressHelp      = "Interval for logging recorder statistics. Zero disables it."
	verboseModeHelp   = "Enable verbose logging and debugging capabilities."
	versionHelp       = "Show version."
	configHelp        = "Path to a configuration file with one flag per line."
)

type arguments struct {
	output        string
	workers       int
	rounds        int
	bufferSize    int
	autoFlush     uint64
	stackSlots    int
	profileOutput string
	progress      time.Duration
	verboseMode   bool
	version       bool
	configFile    string

	fs *flag.FlagSet
}

func parseArgs(argv []string) (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("basetrace", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.Uint64Var(&args.autoFlush, "auto-flush", defaultArgAutoFlush, autoFlushHelp)

	fs.IntVar(&args.bufferSize, "buffer-size", defaultArgBufferSize, bufferSizeHelp)

	fs.StringVar(&args.configFile, "config", "", configHelp)

	fs.StringVar(&args.output, "output", defaultArgOutput, outputHelp)

	fs.StringVar(&args.profileOutput, "profile-output", "", profileOutputHelp)

	fs.DurationVar(&args.progress, "progress-interval", 0, progressHelp)

	fs.IntVar(&args.rounds, "rounds", defaultArgRounds, roundsHelp)

	fs.IntVar(&args.stackSlots, "stack-slots", stackframe.DefaultSlots, stackSlotsHelp)

	fs.BoolVar(&args.verboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.verboseMode, "verbose", false, verboseModeHelp)
	fs.BoolVar(&args.version, "version", false, versionHelp)

	fs.IntVar(&args.workers, "workers", defaultArgWorkers, workersHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	args.fs = fs

	return &args, ff.Parse(fs, argv,
		ff.WithEnvVarPrefix("BASE_TRACE"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// version does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
}

// dump visits all flags and dumps them to debug.
// Used for verbose mode logging.
func (args *arguments) dump() {
	log.Debug("Config:")
	args.fs.VisitAll(func(f *flag.Flag) {
		log.Debugf("%s: %v", f.Name, f.Value)
	})
}
