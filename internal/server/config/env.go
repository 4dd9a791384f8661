package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a
// local .env file first if one exists. Unset variables leave the current
// value untouched.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	overlay := []struct {
		key    string
		target *string
	}{
		{"ADDRESS", &config.EndpointAddrHTTP},
		{"DATABASE_DSN", &config.DatabaseDSN},
		{"S3_ROOT_USER", &config.S3RootUser},
		{"S3_ROOT_PASSWORD", &config.S3RootPassword},
		{"S3_BUCKET", &config.S3Bucket},
		{"S3_REGION", &config.S3Region},
		{"S3_BASE_ENDPOINT", &config.S3BaseEndpoint},
		{"UPLOADS_DIR", &config.UploadsDir},
	}

	for _, o := range overlay {
		if value, ok := os.LookupEnv(o.key); ok {
			*o.target = value
		}
	}
}
