// Package otelcatalog adds OpenTelemetry tracing to a promptcatalog.Service.
// Wrap the registry before handing it to the host; each of Names, Describe, Invoke and
// Reload produces one span named promptcatalog.<Operation>.
package otelcatalog
