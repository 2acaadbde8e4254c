package config

// Application constants
const (
	AppName = "SheetPulse"

	// Routes
	APIBasePath       = "/api"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
