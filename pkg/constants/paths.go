package constants

// Пути health, ready и публичного API дэшборда.
const (
	PathHealth    = "/health"
	PathReady     = "/ready"
	PathDashboard = "/api/dashboard"
	PathModels    = "/api/models"
	PathPatchWS   = "/ws/dashboard"
)
