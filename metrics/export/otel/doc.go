// Package otel exports goPassport engine metrics through the OpenTelemetry
// metric API as observable instruments.
//
// # What this package must NOT do
//
//   - Configure a MeterProvider or exporter pipeline; callers own that.
package otel
