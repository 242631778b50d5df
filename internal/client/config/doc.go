// Package config loads runtime configuration for the FitSync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the document server
//	-i int      online status check interval (seconds)
//	-f string   local database file
//	-l string   log file
//	-t int      remote request timeout (seconds)
//	-p int      feed page size
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds. Keys that are absent keep their earlier value:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "5s",
//	  "database_path": "fitsync.db",
//	  "log_file": "fitsync-client.log",
//	  "request_timeout": "10s",
//	  "page_size": 20
//	}
package config
