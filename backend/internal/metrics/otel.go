package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "bikerace/backend/internal/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
