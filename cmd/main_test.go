package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/servhooks/internal/adapters/metadata"
	"github.com/okian/servhooks/internal/config"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildService(t *testing.T) {
	convey.Convey("Given a valid configuration", t, func() {
		_ = logger.Init()
		cfg := config.New()
		cfg.NotifyDeleteURL = "http://127.0.0.1:1/delete_user"
		cfg.ManagedChannels = map[string]string{"#lobby": "BotServ"}
		cfg.WorkerCount = 2

		svc := buildService(cfg, metadata.NewMemory())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		handler := newHandler(svc)

		convey.Convey("When the health endpoint is scraped", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			convey.Convey("Then the service metrics are exposed", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "servhooks_")
			})
		})

		convey.Convey("When a session hook is posted", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/hooks/session-connected", strings.NewReader(`{"session_id":"s1","nick":"alice"}`))
			handler.ServeHTTP(w, req)

			convey.Convey("Then the registry mirrors it", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				s, ok := svc.Registry().Session("s1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s.Nick, convey.ShouldEqual, "alice")
			})
		})

		convey.Convey("When stats are requested", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"worker_count":2`)
		})
	})
}

func TestDotenvFeedsConfig(t *testing.T) {
	convey.Convey("Given a .env file with the required settings", t, func() {
		path := t.TempDir() + "/.env"
		content := "SERVHOOKS_NOTIFY_DELETE_URL=https://accounts.example.net/drop\nSERVHOOKS_ADDR=:9191\n"
		convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)
		defer func() {
			_ = os.Unsetenv("SERVHOOKS_NOTIFY_DELETE_URL")
			_ = os.Unsetenv("SERVHOOKS_ADDR")
		}()

		convey.So(godotenv.Load(path), convey.ShouldBeNil)

		convey.Convey("Then config picks the values up from the environment", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9191")
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the runtime gauges", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
