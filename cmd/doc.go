// Package cmd provides the command-line interface for grievance.
//
// # Available Commands
//
//   - serve: serve the page, one form per page load
//   - send: send one grievance from flags or standard input
//   - compose: fill in the form in the terminal
//   - config: print the effective configuration as YAML, or review it with --check
//   - health: check a running server and the endpoint it forwards to
//   - version: print build information
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. GRIEVANCE_CONFIG_FILE: path to a config file
//  3. Environment variables (GRIEVANCE_<SECTION>_<OPTION>)
//  4. Configuration file (.grievance.yml)
//  5. Default values (lowest priority)
//
// KEY=value pairs in ./.env are loaded into the environment before any of
// these are read; variables that are already set win.
//
// # Error Handling
//
// Configuration, startup and delivery failures are returned as
// errors.EnhancedError, which prints numbered suggestions after the message.
package cmd
