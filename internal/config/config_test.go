package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/attendance/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have kiosk defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ConfidenceThreshold, convey.ShouldEqual, 0.6)
			convey.So(cfg.Cooldown(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.PreventDuplicateAttendance, convey.ShouldBeTrue)
			convey.So(cfg.MinCaptures, convey.ShouldEqual, 1)
			convey.So(cfg.DescriptorLength, convey.ShouldEqual, 128)
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.NotifyBackend, convey.ShouldEqual, config.NotifyNone)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the default timezone resolves to local time", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc, convey.ShouldEqual, time.Local)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"threshold above one", func(c *config.Config) { c.ConfidenceThreshold = 1.2 }},
			{"negative threshold", func(c *config.Config) { c.ConfidenceThreshold = -0.1 }},
			{"negative cooldown", func(c *config.Config) { c.CooldownMS = -1 }},
			{"zero min captures", func(c *config.Config) { c.MinCaptures = 0 }},
			{"negative length", func(c *config.Config) { c.DescriptorLength = -5 }},
			{"unknown timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }},
			{"unknown store", func(c *config.Config) { c.StoreBackend = "redis" }},
			{"file without path", func(c *config.Config) { c.StoreBackend = config.StoreFile; c.StorePath = "" }},
			{"minio without endpoint", func(c *config.Config) { c.StoreBackend = config.StoreMinio }},
			{"postgres without dsn", func(c *config.Config) { c.StoreBackend = config.StorePostgres }},
			{"unknown notify", func(c *config.Config) { c.NotifyBackend = "kafka" }},
			{"nats without subject", func(c *config.Config) { c.NotifyBackend = config.NotifyNATS; c.NATSSubject = "" }},
			{"mqtt without topic", func(c *config.Config) { c.NotifyBackend = config.NotifyMQTT; c.MQTTTopic = "" }},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)

				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When a named timezone is valid", func() {
			cfg := config.New()
			cfg.Timezone = "UTC"
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "UTC")
		})
	})
}
