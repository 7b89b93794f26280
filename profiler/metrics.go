// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var bgContext = context.Background()

var (
	meter = otel.Meter("github.com/base-framework/base/profiler")

	eventsCounter  = int64Counter("base.profiler.events", "Recorded events.")
	blocksCounter  = int64Counter("base.profiler.blocks", "Allocated event blocks.")
	flushesCounter = int64Counter("base.profiler.flushes", "Flushes to the trace output.")
	stacksInterned = int64Counter("base.profiler.stacks.interned", "Stack traces passed to interning.")
)

func int64Counter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		log.Errorf("Creating Int64Counter %s: %v", name, err)
		counter, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return counter
}
