package instance

import (
	"os"

	"github.com/angelmondragon/bookstall-backend/pkg/env"
)

// EnvInstanceID overrides the detected instance identifier.
const EnvInstanceID = "BOOKSTALL_INSTANCE_ID"

// GetID returns the process instance identifier used in log fields.
// Lookup order: BOOKSTALL_INSTANCE_ID, the Heroku DYNO, then the hostname.
func GetID() string {
	if id := env.Get("", EnvInstanceID, "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
