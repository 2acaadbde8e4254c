// Package config loads the service configuration.
//
// # Configuration Sources
//
//	1. Built-in defaults (default struct tags)
//	2. Environment variables prefixed SHEETPULSE_
//	3. An optional YAML file, SHEETPULSE_CONFIG_FILE or ./config.yaml
//
// Later sources override earlier ones. YAML keys that are absent leave the
// environment value in place.
//
// # Environment Variables
//
//	SHEETPULSE_SERVER_PORT=8080
//	SHEETPULSE_LOGGING_LEVEL=debug
//	SHEETPULSE_SOURCES_BACKEND=sqlite
//	SHEETPULSE_SOURCES_SQLITE_PATH=sources.db
//	SHEETPULSE_SOURCES_GOOGLE_API_KEY=...
//
// # Path Management
//
// Paths resolves data, web and log directories against the executable
// directory:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	registryFile := paths.DataFile(cfg.Sources.FilePath)
package config
