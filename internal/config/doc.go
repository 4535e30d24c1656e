// Package config handles configuration loading for mcp-hub.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${MCPHUB_JWT_SECRET}"
//	  encryption_key: "${MCPHUB_ENCRYPTION_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  access_token_ttl: "480h"
//	  refresh_token_ttl: "720h"
//	  token_refresh_margin: "5m"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://hub.example.com"
//
// Database:
//
//	database:
//	  path: "/var/lib/mcp-hub/app.db"
//
// Provider credentials (admin-settable overrides in app_settings win):
//
//	providers:
//	  slack:
//	    client_id: "${SLACK_CLIENT_ID}"
//	    client_secret: "${SLACK_CLIENT_SECRET}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
