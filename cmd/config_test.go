package cmd_test

import (
	"testing"

	"dispatch/cmd"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

func validConfig() cmd.Config {
	return cmd.Config{
		CourierAPIBaseURL:    "https://dispatch.example.com/api",
		CourierSessionCookie: "abc123",
		SensorKind:           cmd.SensorWebSocket,
		SensorURL:            "ws://127.0.0.1:9000/geo",
		NotifyRadiusKm:       1,
	}
}

func Test_Config_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate func(c *cmd.Config)
		target error
	}{
		"valid websocket": {mutate: func(*cmd.Config) {}},
		"valid replay": {mutate: func(c *cmd.Config) {
			c.SensorKind = cmd.SensorReplay
			c.SensorURL = ""
			c.SensorReplayFile = "tracks/kadikoy.yaml"
		}},
		"missing base url":      {mutate: func(c *cmd.Config) { c.CourierAPIBaseURL = "" }, target: errs.ErrValueIsRequired},
		"missing cookie":        {mutate: func(c *cmd.Config) { c.CourierSessionCookie = "" }, target: errs.ErrValueIsRequired},
		"missing sensor url":    {mutate: func(c *cmd.Config) { c.SensorURL = "" }, target: errs.ErrValueIsRequired},
		"missing replay file":   {mutate: func(c *cmd.Config) { c.SensorKind = cmd.SensorReplay }, target: errs.ErrValueIsRequired},
		"unknown sensor":        {mutate: func(c *cmd.Config) { c.SensorKind = "gps" }, target: errs.ErrValueIsInvalid},
		"telegram without chat": {mutate: func(c *cmd.Config) { c.TelegramToken = "123:abc" }, target: errs.ErrValueIsRequired},
		"zero radius":           {mutate: func(c *cmd.Config) { c.NotifyRadiusKm = 0 }, target: errs.ErrValueIsOutOfRange},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.target == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
