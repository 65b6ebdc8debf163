package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultRPCSubjectPrefix = "products"

// RPCConfig configures the NATS request/reply command server.
type RPCConfig struct {
	SubjectPrefix string        `koanf:"subjectprefix"`
	Queue         string        `koanf:"queue"`
	Timeout       time.Duration `koanf:"timeout"`
}

// String returns a string representation of the RPC configuration.
func (c *RPCConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- RPC ---\n")
	b.WriteString(fmt.Sprintf("  subjectprefix: %s\n", c.SubjectPrefix))
	b.WriteString(fmt.Sprintf("  queue: %s\n", c.Queue))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *RPCConfig) Validate() error {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultRPCSubjectPrefix
	}
	if strings.ContainsAny(c.SubjectPrefix, " *>") {
		return fmt.Errorf("rpc subject prefix contains invalid characters: %q", c.SubjectPrefix)
	}
	if c.Queue == "" {
		return fmt.Errorf("rpc queue group is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("rpc handler timeout is not configured")
	}
	return nil
}
