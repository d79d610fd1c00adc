// Package config loads and validates WordStream application
// configuration.
//
// Configuration is a single document with five sections: version,
// platform identity, security, NATS connection settings and the
// component instance map. Files may be JSON or YAML, chosen by
// extension. Multiple layers can be stacked, later layers overriding
// earlier ones field by field:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.json")
//	loader.AddLayer("configs/local.yaml")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Environment variables with the WORDSTREAM_ prefix override file
// values, e.g. WORDSTREAM_NATS_URLS or WORDSTREAM_PLATFORM_ID.
//
// SafeConfig wraps a Config for concurrent readers, handing out deep
// copies so callers can never mutate shared state.
package config
