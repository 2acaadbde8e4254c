// Package app wires the SheetPulse web server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from the environment and an optional YAML file
//	2. Initialize logging and OpenTelemetry
//	3. Open the named-source registry backend (memory, file, sqlite or http)
//	4. Build the fetcher, dataset store, websocket hub and services
//	5. Set up middleware and routes
//	6. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run waits for SIGINT or SIGTERM, then drains in-flight requests,
// disconnects websocket clients, flushes telemetry and closes the registry
// backend.
package app
