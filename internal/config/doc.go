// Package config loads the mailbridge server configuration.
//
// Sources are applied in increasing precedence: built-in defaults, an
// optional YAML file, environment variables, and finally command line flags
// (applied by the cmd package).
//
// Example file:
//
//	http:
//	  addr: ":8080"
//	  shutdown_timeout: 30s
//	  cors_allowed_origins: ["https://app.example.com"]
//	gmail:
//	  fetch_concurrency: 8
//	metrics:
//	  enabled: true
//	  addr: ":9090"
//	log:
//	  format: json
package config
