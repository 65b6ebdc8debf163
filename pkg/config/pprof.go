package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// PProfConfig controls the profiling listener. It is off by default and should stay on a loopback address.
type PProfConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"readHeaderTimeout"`
}

// String returns a string representation of the pprof configuration.
func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	b.WriteString(fmt.Sprintf("  readHeaderTimeout: %v\n", c.ReadHeaderTimeout))
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid pprof address %q: %w", c.Addr, err)
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("invalid pprof read header timeout: %v", c.ReadHeaderTimeout)
	}
	return nil
}
