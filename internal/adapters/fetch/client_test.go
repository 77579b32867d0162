package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/servhooks/internal/adapters/fetch"
	"github.com/smartystreets/goconvey/convey"
)

func TestClientDo(t *testing.T) {
	convey.Convey("Given an upstream server", t, func() {
		var (
			calls   atomic.Int32
			gotUA   atomic.Value
			gotCT   atomic.Value
			gotBody atomic.Value
		)
		var status, delay atomic.Int64
		status.Store(http.StatusOK)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			gotUA.Store(r.UserAgent())
			gotCT.Store(r.Header.Get("Content-Type"))
			b, _ := io.ReadAll(r.Body)
			gotBody.Store(string(b))
			if d := time.Duration(delay.Load()); d > 0 {
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					return
				}
			}
			w.WriteHeader(int(status.Load()))
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		ctx := context.Background()

		convey.Convey("When the call succeeds", func() {
			c := fetch.New()
			body, err := c.Do(ctx, fetch.Request{
				Op:      "notify",
				Method:  http.MethodPost,
				URL:     srv.URL,
				Headers: map[string]string{"Content-Type": "application/json"},
				Body:    []byte(`{"username":"alice"}`),
			})

			convey.Convey("Then exactly one request carries the payload", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(body), convey.ShouldEqual, `{"ok":true}`)
				convey.So(calls.Load(), convey.ShouldEqual, 1)
				convey.So(gotUA.Load(), convey.ShouldEqual, fetch.DefaultUserAgent)
				convey.So(gotCT.Load(), convey.ShouldEqual, "application/json")
				convey.So(gotBody.Load(), convey.ShouldEqual, `{"username":"alice"}`)
			})
		})

		convey.Convey("When the server answers 500", func() {
			status.Store(http.StatusInternalServerError)
			_, err := fetch.New().Do(ctx, fetch.Request{Op: "lookup", URL: srv.URL})

			convey.Convey("Then a TransportError carries the status and nothing is retried", func() {
				var te *fetch.TransportError
				convey.So(errors.As(err, &te), convey.ShouldBeTrue)
				convey.So(te.Status, convey.ShouldEqual, http.StatusInternalServerError)
				convey.So(errors.Is(err, fetch.ErrTransport), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldEqual, "lookup: unexpected status 500")
				convey.So(calls.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the server is slower than the timeout", func() {
			delay.Store(int64(time.Second))
			c := fetch.New(fetch.WithTimeout(50 * time.Millisecond))

			start := time.Now()
			_, err := c.Do(ctx, fetch.Request{Op: "lookup", URL: srv.URL})

			convey.Convey("Then the call gives up on time with ErrTimeout", func() {
				convey.So(errors.Is(err, fetch.ErrTransport), convey.ShouldBeTrue)
				convey.So(errors.Is(err, fetch.ErrTimeout), convey.ShouldBeTrue)
				convey.So(time.Since(start), convey.ShouldBeLessThan, 900*time.Millisecond)
			})
		})

		convey.Convey("When the body is larger than the cap", func() {
			c := fetch.New(fetch.WithMaxResponseBytes(4))
			body, err := c.Do(ctx, fetch.Request{URL: srv.URL})

			convey.So(err, convey.ShouldBeNil)
			convey.So(string(body), convey.ShouldEqual, `{"ok`)
		})
	})

	convey.Convey("Given an address nobody listens on", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := fetch.New().Do(context.Background(), fetch.Request{Op: "notify", URL: addr})

		convey.Convey("Then the connection failure is a TransportError", func() {
			var te *fetch.TransportError
			convey.So(errors.As(err, &te), convey.ShouldBeTrue)
			convey.So(te.Status, convey.ShouldEqual, 0)
			convey.So(strings.HasPrefix(err.Error(), "notify: "), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a credential in the query of an unreachable address", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := fetch.New().Do(context.Background(), fetch.Request{Op: "lookup", URL: addr + "/videos?id=x&key=SECRETKEY123"})

		convey.Convey("Then neither the message nor the error fields quote it", func() {
			var te *fetch.TransportError
			convey.So(errors.As(err, &te), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldNotContainSubstring, "SECRETKEY123")
			convey.So(err.Error(), convey.ShouldNotContainSubstring, "/videos")
			convey.So(te.URL, convey.ShouldEqual, addr+"/videos")
		})
	})

	convey.Convey("Given a credential in the query of a slow endpoint", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		_, err := fetch.New(fetch.WithTimeout(50*time.Millisecond)).Do(context.Background(), fetch.Request{Op: "lookup", URL: srv.URL + "?key=SECRETKEY123"})

		convey.Convey("Then the timeout is still recognised without quoting the address", func() {
			convey.So(errors.Is(err, fetch.ErrTimeout), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldNotContainSubstring, "SECRETKEY123")
		})
	})

	convey.Convey("Given a malformed URL", t, func() {
		_, err := fetch.New().Do(context.Background(), fetch.Request{URL: "http://[::1"})
		convey.So(errors.Is(err, fetch.ErrTransport), convey.ShouldBeTrue)
	})
}
