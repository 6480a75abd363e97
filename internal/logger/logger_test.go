package logger

import (
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-lint/internal/config"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		cfgLevel string
		want     hclog.Level
	}{
		{name: "default", want: hclog.Info},
		{name: "from config", cfgLevel: "debug", want: hclog.Debug},
		{name: "env wins", env: map[string]string{LevelEnv: "error"}, cfgLevel: "debug", want: hclog.Error},
		{name: "empty env ignored", env: map[string]string{LevelEnv: ""}, cfgLevel: "warn", want: hclog.Warn},
		{name: "unknown falls back", cfgLevel: "loud", want: hclog.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}
			cfg := &config.Config{Logger: config.Logger{Level: tt.cfgLevel}}
			if got := determineLogLevel(cfg, lookup); got != tt.want {
				t.Fatalf("determineLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
