package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/pairwise/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.KFactor, convey.ShouldEqual, 24)
			convey.So(cfg.InitialRating, convey.ShouldEqual, 1500)
			convey.So(cfg.SessionBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.SweepInterval(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.BreakerTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.TopListSize, convey.ShouldEqual, 12)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with invalid fields", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the backend is unknown", func() {
			cfg.SessionBackend = "postgres"
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "session_backend must be one of")
		})

		convey.Convey("When K is not positive", func() {
			cfg.KFactor = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When redis is selected without an address", func() {
			cfg.SessionBackend = "redis"
			cfg.RedisAddr = ""
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
