package instance

import (
	"os"

	"github.com/angelmondragon/storefront-backend/pkg/env"
)

// GetID identifies the running process in logs and cron lock ownership.
// STOREFRONT_INSTANCE_ID wins, then the platform DYNO name, then the hostname.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
