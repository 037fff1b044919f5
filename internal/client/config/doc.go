// Package config loads runtime configuration for the VolunteerHub CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or VOLUNTEERHUB_CONFIG.
//  3. Command-line flags.
//
// JSON example:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "data_dir": ".vhub",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s"
//	}
package config
