package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/recipebox/pkg/metrics"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When the configuration is valid", func() {
			_ = os.Setenv("RECIPEBOX_ADDR", "127.0.0.1:0")
			_ = os.Setenv("RECIPEBOX_SHUTDOWN_TIMEOUT_MS", "2000")
			defer func() {
				_ = os.Unsetenv("RECIPEBOX_ADDR")
				_ = os.Unsetenv("RECIPEBOX_SHUTDOWN_TIMEOUT_MS")
			}()

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- run(ctx) }()

			convey.Convey("Then it serves until cancelled and stops cleanly", func() {
				time.Sleep(200 * time.Millisecond)
				cancel()

				select {
				case err := <-errCh:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("RECIPEBOX_ADDR", "")
			defer func() { _ = os.Unsetenv("RECIPEBOX_ADDR") }()

			convey.Convey("Then run fails before serving", func() {
				err := run(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "failed to load config")
			})
		})

		convey.Convey("When the address cannot be bound", func() {
			_ = os.Setenv("RECIPEBOX_ADDR", "256.0.0.1:bad")
			defer func() { _ = os.Unsetenv("RECIPEBOX_ADDR") }()

			convey.Convey("Then run reports the start failure", func() {
				err := run(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "failed to start service")
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When updating once", func() {
			updateSystemMetrics()

			convey.Convey("Then the goroutine gauge is populated", func() {
				count := testutil.CollectAndCount(metrics.GetRegistry(), "recipebox_api_system_goroutine_count")
				convey.So(count, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			convey.Convey("Then the updater returns", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})
	})
}
