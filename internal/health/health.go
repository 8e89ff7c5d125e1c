// Package health provides the two trivial health endpoints the core
// deliberately excludes (spec §1, §6): /healthz always reports healthy;
// /readyz reports ready only once a controller callback URL is
// configured.
package health

import "net/http"

// Healthz always responds 200. There is no dependency to check: the
// process being able to answer HTTP at all is the only thing it asserts.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz reports 200 iff callbackConfigured is true, 503 otherwise.
func Readyz(callbackConfigured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !callbackConfigured {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready","reason":"callback url not configured"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
