// Package config provides configuration management for metasnap.
//
// A Config has four sections: source (where the document comes from),
// output (where and how the snapshot is written), publish (optional upload
// to object storage) and observability (logging, metrics, tracing).
//
// # Defaults
//
// Default reproduces the fixed reference behavior: IBGE aggregate 1419
// metadata, a 30 second fetch timeout and a metadados.parquet file with the
// columns Chave and Valor. Every other source of configuration is an
// override.
//
// # Loading
//
// Load reads an optional YAML file, substitutes ${VAR_NAME} references with
// environment values, and then applies METASNAP_* environment overrides
// through viper:
//
//	cfg, err := config.Load("metasnap.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	# metasnap.yaml
//	source:
//	  table_id: 1419
//	  timeout: 10s
//	output:
//	  path: /data/metadados.parquet
//	publish:
//	  target: s3
//	  bucket: ${SNAPSHOT_BUCKET}
//
//	METASNAP_OUTPUT_PATH=/tmp/out.parquet metasnap run
//
// # Validation
//
// Validate checks the struct tags with go-playground/validator and reports
// fields by their YAML path, e.g. "output.format".
package config
