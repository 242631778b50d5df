package config

import "time"

// Config holds runtime settings for the FitSync CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the document server's gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - DatabasePath: SQLite file holding the local store and the sync queue.
//   - LogFile: rotating JSON log; the REPL keeps stdout for itself.
//   - RequestTimeout: bound for each remote call and the first feed batch.
//   - PageSize: feed page size requested from the server.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	LogFile             string
	RequestTimeout      time.Duration
	PageSize            int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 5 * time.Second
	c.DatabasePath = "fitsync.db"
	c.LogFile = "fitsync-client.log"
	c.RequestTimeout = 10 * time.Second
	c.PageSize = 20
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
