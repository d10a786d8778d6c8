package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
)

// GetEnv reads an environment variable, falling back to def when unset or
// blank. The fallback is logged so misconfigured deployments are visible.
func GetEnv(name, def string, log *logger.Logger) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		if def != "" {
			log.Debug("Env var unset, using default", "name", name, "default", def)
		}
		return def
	}
	return v
}

// GetEnvAsInt reads an integer environment variable. Non-numeric values fall
// back to def rather than aborting startup.
func GetEnvAsInt(name string, def int, log *logger.Logger) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("Env var is not an integer, using default", "name", name, "value", v, "default", def)
		return def
	}
	return i
}
