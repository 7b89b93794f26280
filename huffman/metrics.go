// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package huffman // import "github.com/base-framework/base/huffman"

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var bgContext = context.Background()

var (
	meter = otel.Meter("github.com/base-framework/base/huffman")

	bytesIn  = int64Counter("base.huffman.bytes.in", "Uncompressed bytes passed through the codec.")
	bytesOut = int64Counter("base.huffman.bytes.out", "Encoded bytes produced or consumed by the codec.")
)

func int64Counter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name,
		metric.WithDescription(description),
		metric.WithUnit("By"))
	if err != nil {
		log.Errorf("Creating Int64Counter %s: %v", name, err)
		counter, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return counter
}
