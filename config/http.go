package config

import (
	"encoding/json"
	"fmt"
	"time"

	"ocm.software/open-component-model/artifactresolver/transport/remote"
)

// Default transport timeouts applied when the configuration leaves them unset.
var (
	DefaultTimeout               = Timeout(0)
	DefaultTCPDialTimeout        = Timeout(30 * time.Second)
	DefaultTCPKeepAlive          = Timeout(30 * time.Second)
	DefaultTLSHandshakeTimeout   = Timeout(10 * time.Second)
	DefaultResponseHeaderTimeout = Timeout(10 * time.Second)
	DefaultIdleConnTimeout       = Timeout(90 * time.Second)
)

// Timeout is a duration read from a human-readable string ("30s", "5m")
// or a number of nanoseconds. Use it as a pointer so that nil means "not
// set" and zero means "disabled".
type Timeout time.Duration

// NewTimeout creates a pointer to a Timeout set to d.
func NewTimeout(d time.Duration) *Timeout {
	v := Timeout(d)
	return &v
}

// Value returns the duration, 0 for a nil pointer.
func (d *Timeout) Value() time.Duration {
	if d == nil {
		return 0
	}
	return time.Duration(*d)
}

func (d Timeout) String() string {
	return time.Duration(d).String()
}

func (d Timeout) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Timeout) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("failed to parse timeout: %w", err)
	}

	switch value := v.(type) {
	case float64:
		*d = Timeout(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value %q: must be a duration like 30s, 5m, or nanoseconds number: %w", value, err)
		}
		*d = Timeout(tmp)
		return nil
	default:
		return fmt.Errorf("timeout must be a duration string or nanoseconds number, got %T", v)
	}
}

// HTTP configures the client used by remote repositories.
type HTTP struct {
	// Timeout limits a whole request. Disabled when not set.
	Timeout *Timeout `json:"timeout,omitempty"`
	// ResponseHeaderTimeout defaults to 10s.
	ResponseHeaderTimeout *Timeout `json:"responseHeaderTimeout,omitempty"`
	// IdleConnTimeout defaults to 90s.
	IdleConnTimeout *Timeout `json:"idleConnTimeout,omitempty"`
	// TCPDialTimeout defaults to 30s.
	TCPDialTimeout *Timeout `json:"tcpDialTimeout,omitempty"`
	// TCPKeepAlive defaults to 30s.
	TCPKeepAlive *Timeout `json:"tcpKeepAlive,omitempty"`
	// TLSHandshakeTimeout defaults to 10s.
	TLSHandshakeTimeout *Timeout `json:"tlsHandshakeTimeout,omitempty"`
}

// DefaultHTTP returns the HTTP configuration with every default set.
func DefaultHTTP() *HTTP {
	return &HTTP{
		Timeout:               NewTimeout(DefaultTimeout.Value()),
		TCPDialTimeout:        NewTimeout(DefaultTCPDialTimeout.Value()),
		TCPKeepAlive:          NewTimeout(DefaultTCPKeepAlive.Value()),
		TLSHandshakeTimeout:   NewTimeout(DefaultTLSHandshakeTimeout.Value()),
		ResponseHeaderTimeout: NewTimeout(DefaultResponseHeaderTimeout.Value()),
		IdleConnTimeout:       NewTimeout(DefaultIdleConnTimeout.Value()),
	}
}

// MergeHTTP merges the provided configs into a single config.
// The last explicitly set timeout wins. Nil configs are skipped.
func MergeHTTP(configs ...*HTTP) *HTTP {
	merged := new(HTTP)
	for _, config := range configs {
		if config == nil {
			continue
		}
		if config.Timeout != nil {
			merged.Timeout = config.Timeout
		}
		if config.TCPDialTimeout != nil {
			merged.TCPDialTimeout = config.TCPDialTimeout
		}
		if config.TCPKeepAlive != nil {
			merged.TCPKeepAlive = config.TCPKeepAlive
		}
		if config.TLSHandshakeTimeout != nil {
			merged.TLSHandshakeTimeout = config.TLSHandshakeTimeout
		}
		if config.ResponseHeaderTimeout != nil {
			merged.ResponseHeaderTimeout = config.ResponseHeaderTimeout
		}
		if config.IdleConnTimeout != nil {
			merged.IdleConnTimeout = config.IdleConnTimeout
		}
	}
	return merged
}

// Timeouts converts the configuration for the remote transport.
func (h *HTTP) Timeouts() remote.Timeouts {
	return remote.Timeouts{
		Timeout:               h.Timeout.Value(),
		TCPDialTimeout:        h.TCPDialTimeout.Value(),
		TCPKeepAlive:          h.TCPKeepAlive.Value(),
		TLSHandshakeTimeout:   h.TLSHandshakeTimeout.Value(),
		ResponseHeaderTimeout: h.ResponseHeaderTimeout.Value(),
		IdleConnTimeout:       h.IdleConnTimeout.Value(),
	}
}
