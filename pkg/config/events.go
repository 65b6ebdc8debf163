package config

import (
	"fmt"
	"strings"
)

// EventsConfig configures publishing of product change events to JetStream.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Stream        string `koanf:"stream"`
	SubjectPrefix string `koanf:"subjectprefix"`
}

// String returns a string representation of the events configuration.
func (c *EventsConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Events ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  subjectprefix: %s\n", c.SubjectPrefix))
	return b.String()
}

func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Stream == "" {
		return fmt.Errorf("events are enabled but stream is not configured")
	}
	if c.SubjectPrefix == "" {
		return fmt.Errorf("events are enabled but subject prefix is not configured")
	}
	return nil
}
