package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPProfConfig_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       PProfConfig
		expectErr bool
	}{
		{name: "disabled needs nothing", cfg: PProfConfig{}},
		{name: "enabled", cfg: PProfConfig{Enabled: true, Addr: "localhost:6060", ReadHeaderTimeout: time.Second}},
		{name: "enabled without port", cfg: PProfConfig{Enabled: true, Addr: "localhost", ReadHeaderTimeout: time.Second}, expectErr: true},
		{name: "enabled without address", cfg: PProfConfig{Enabled: true, ReadHeaderTimeout: time.Second}, expectErr: true},
		{name: "enabled without timeout", cfg: PProfConfig{Enabled: true, Addr: "localhost:6060"}, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			err := tc.cfg.Validate()

			// then
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
