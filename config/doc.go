// Package config loads gridwatch configuration.
//
// Configuration is built from defaults, then zero or more file layers, then
// environment overrides. Files may be JSON or YAML; later layers replace the
// fields they name and leave the rest alone. Lists replace wholesale.
//
// Every layer is checked against an embedded JSON schema before it is merged,
// so typos in field names and wrong value types are reported against the file
// that contains them. The merged result is then checked by Config.Validate for
// the constraints a schema cannot express, such as unique sensor IDs.
//
// Durations are written in Go syntax ("1s", "250ms") or with a day suffix
// ("2d"). Plain integers are taken as nanoseconds.
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/gridwatch.yaml")
//	loader.AddLayer("configs/local.json") // overrides the base layer
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// # Environment Overrides
//
// Variables use the GRIDWATCH_ prefix:
//
//	GRIDWATCH_WINDOW_SIZE          pipeline.window_size
//	GRIDWATCH_ANOMALY_THRESHOLD    pipeline.anomaly_threshold
//	GRIDWATCH_INTERVAL             driver.interval
//	GRIDWATCH_NATS_ENABLED         nats.enabled
//	GRIDWATCH_NATS_URLS            nats.urls (comma separated)
//	GRIDWATCH_NATS_USERNAME        nats.username
//	GRIDWATCH_NATS_PASSWORD        nats.password
//	GRIDWATCH_NATS_TOKEN           nats.token
//	GRIDWATCH_METRICS_PORT         metrics.port
package config
