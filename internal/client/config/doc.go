// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config or GOPHAUTH_CLI_CONFIG.
//  3. Environment variables prefixed with GOPHAUTH_CLI_.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "database_path": "gophauth.db",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s"
//	}
package config
