// Package metasnap snapshots a remote JSON metadata document into a columnar
// key/value file.
//
// A run fetches one document over HTTP (by default the IBGE aggregates
// metadata endpoint for table 1419), turns each top-level member into a row
// whose key is the member name and whose value is the member rendered as
// text, and writes the rows to a two-column Parquet file named
// metadados.parquet with columns Chave and Valor. Scalars keep their literal
// text, strings are written without quotes and nested objects or arrays are
// written as indented JSON in their original member order.
//
// # Architecture
//
// The run is a short, strictly sequential pipeline:
//
//	fetch (pkg/clients) -> flatten (pkg/flatten) -> write (pkg/destination)
//	    -> publish (pkg/destination/s3, pkg/destination/gcs, optional)
//
// The first failing stage stops the run and determines its outcome; nothing
// is written unless the document was fetched, was an object and had at least
// one member.
//
// Supporting packages:
//
//   - pkg/document: an order-preserving JSON value model and codec
//   - pkg/formats/columnar: Parquet and Arrow IPC writers and readers
//   - pkg/config: YAML and environment configuration with validation
//   - pkg/errors: typed errors with captured stacks
//   - pkg/logger: zap based structured logging
//   - pkg/metrics: Prometheus stage metrics with textfile export
//   - pkg/observability: OpenTelemetry tracing
//
// # Quick Start
//
// Reproduce the reference snapshot:
//
//	metasnap run
//
// Snapshot another table as Arrow and inspect the result:
//
//	metasnap run --table 1737 --format arrow --output ipca.arrow
//	metasnap inspect ipca.arrow
//
// Every setting can also come from a YAML file (metasnap config init) or a
// METASNAP_* environment variable such as METASNAP_SOURCE_TIMEOUT=10s.
package metasnap
