package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fitsync/internal/flagx"
	"github.com/dmitrijs2005/fitsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// mean "not set".
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	LogFile             string         `json:"log_file"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	PageSize            int            `json:"page_size"`
}

// parseJson overlays Config with the values set in the JSON file named by -c
// or -config. It does nothing when no file is given and panics when the file
// cannot be read or decoded.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.LogFile != "" {
		cfg.LogFile = jc.LogFile
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
}
