package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"
)

// RestySettings is the resolved HTTP client configuration used by the webhook sink.
type RestySettings struct {
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	Timeout          time.Duration
	TLSClientConfig  *tls.Config
	Proxy            string
	Debug            bool
}

// DefaultRestySettings returns defaults for the outbound HTTP client.
func DefaultRestySettings() RestySettings {
	return RestySettings{
		RetryCount:       5,
		RetryWaitTime:    1 * time.Second,
		RetryMaxWaitTime: 5 * time.Second,
		Timeout:          30 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// RestySettingsFrom overlays the http_client directive on the defaults.
func RestySettingsFrom(cfg *Config) RestySettings {
	s := DefaultRestySettings()
	if cfg == nil {
		return s
	}

	hc := cfg.HTTPClient
	s.RetryCount = SetThen(hc.RetryCount, s.RetryCount)
	s.RetryWaitTime = SetThen(hc.RetryWaitTime, s.RetryWaitTime)
	s.RetryMaxWaitTime = SetThen(hc.RetryMaxWaitTime, s.RetryMaxWaitTime)
	s.Timeout = SetThen(hc.Timeout, s.Timeout)
	s.Debug = BoolValue(hc.Debug, false)
	s.TLSClientConfig.InsecureSkipVerify = !BoolValue(hc.TLSClientConfig.Verify, true)
	if hc.Proxy.Host != "" && hc.Proxy.Port != 0 {
		host := hc.Proxy.Host
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		s.Proxy = fmt.Sprintf("%s:%d", host, hc.Proxy.Port)
	}
	return s
}
