// Package cmd implements the command-line interface for mailbridge.
//
// This package provides the following commands:
//   - serve: Start the REST API in front of the Gmail API
//   - extract: Decode the body and attachment list of a saved Gmail message
//   - version: Display version information
//
// Configuration is read from an optional YAML file (--config), then the
// environment, then command line flags.
package cmd
