package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/milepost/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func clearEnv() {
	for _, e := range os.Environ() {
		if len(e) > 9 && e[:9] == "MILEPOST_" {
			key := e[:indexOf(e, '=')]
			os.Unsetenv(key)
		}
	}
}

func indexOf(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return len(s)
}

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		clearEnv()
		Reset(clearEnv)

		Convey("When loading with no overrides", func() {
			_, err := config.Load()

			Convey("Then the missing auth secret is rejected", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When auth is disabled", func() {
			os.Setenv("MILEPOST_AUTH_DISABLED", "true")
			cfg, err := config.Load()

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.LogLevel, ShouldEqual, "info")
				So(cfg.TxAttempts, ShouldEqual, 5)
			})
		})

		Convey("When env vars override defaults", func() {
			os.Setenv("MILEPOST_AUTH_SECRET", "sekrit")
			os.Setenv("MILEPOST_ADDR", ":7070")
			os.Setenv("MILEPOST_TX_ATTEMPTS", "9")
			cfg, err := config.Load()

			So(err, ShouldBeNil)
			So(cfg.AuthSecret, ShouldEqual, "sekrit")
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.TxAttempts, ShouldEqual, 9)
		})

		Convey("When a config file sets values and env overrides one", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			So(os.WriteFile(path, []byte("addr: \":6060\"\nauth_disabled: true\nlog_level: debug\n"), 0o600), ShouldBeNil)
			os.Setenv("MILEPOST_CONFIG", path)
			os.Setenv("MILEPOST_LOG_LEVEL", "warn")

			cfg, err := config.Load()

			Convey("Then env wins over file, file over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.LogLevel, ShouldEqual, "warn")
			})
		})

		Convey("When the config file does not exist", func() {
			os.Setenv("MILEPOST_CONFIG", "/nonexistent/config.yaml")
			_, err := config.Load()
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})

		Convey("When tx_attempts is not positive", func() {
			os.Setenv("MILEPOST_AUTH_DISABLED", "true")
			os.Setenv("MILEPOST_TX_ATTEMPTS", "0")
			_, err := config.Load()
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
