package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "127.0.0.1:9090", "-i", "10", "-f", "/tmp/x.db", "-l", "/tmp/x.log", "-t", "4", "-p", "50"},
			expected: &Config{
				ServerEndpointAddr:  "127.0.0.1:9090",
				OnlineCheckInterval: 10 * time.Second,
				DatabasePath:        "/tmp/x.db",
				LogFile:             "/tmp/x.log",
				RequestTimeout:      4 * time.Second,
				PageSize:            50,
			},
		},
		{
			name:     "unknown flags ignored",
			args:     []string{"cmd", "-x", "1", "-p", "5"},
			expected: &Config{PageSize: 5},
		},
		{name: "incorrect check interval", args: []string{"cmd", "-a", "127.0.0.1:9090", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
