package models

import "time"

// MaintenanceConfig is the process-wide maintenance toggle stored at config/maintenance.
type MaintenanceConfig struct {
	Enabled   bool      `json:"enabled"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
