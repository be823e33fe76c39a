// Package telemetry reports server-side failures to Sentry. Every function is
// a no-op until Init is called with a DSN.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the Sentry client for the process. An empty dsn disables
// reporting and is not an error.
func Init(dsn, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		Tags:             map[string]string{"service": "moviehub"},
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrub(event)
		},
	})
	if err != nil {
		return false, fmt.Errorf("sentry init: %w", err)
	}
	return true, nil
}

// CaptureError reports err with the request attached, when r is non-nil.
func CaptureError(err error, r *http.Request, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if r != nil {
			scope.SetRequest(r)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Flush waits up to two seconds for queued events.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// Recover turns a handler panic into a report and a call to onPanic, which
// writes the response.
func Recover(next http.Handler, onPanic func(w http.ResponseWriter, r *http.Request, err error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			CaptureError(err, r, map[string]string{"panic": "true"})
			onPanic(w, r, err)
		}()
		next.ServeHTTP(w, r)
	})
}

var redactedHeaders = []string{"Authorization", "Cookie", "X-Api-Key"}

// scrub strips credentials and client addresses before events leave the process.
func scrub(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	event.User.Email = ""
	event.User.IPAddress = ""
	if event.Request != nil {
		for _, h := range redactedHeaders {
			if _, ok := event.Request.Headers[h]; ok {
				event.Request.Headers[h] = "[redacted]"
			}
		}
		event.Request.Cookies = ""
	}
	return event
}
