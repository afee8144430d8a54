package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"project-planner/logging"
	"project-planner/utils"

	"github.com/sirupsen/logrus"
)

// StatusRecorder remembers the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger writes one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		entry := logging.Logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(r.Context()),
			"status":     rec.Status,
			"duration":   time.Since(start).String(),
		})
		switch {
		case rec.Status >= http.StatusInternalServerError:
			entry.Errorf("Event ID: HTTP_REQUEST, Description: %s %s", r.Method, r.URL.Path)
		case rec.Status >= http.StatusBadRequest:
			entry.Warnf("Event ID: HTTP_REQUEST, Description: %s %s", r.Method, r.URL.Path)
		default:
			entry.Infof("Event ID: HTTP_REQUEST, Description: %s %s", r.Method, r.URL.Path)
		}
	})
}

// Recover turns a handler panic into a 500 envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Logger.Errorf("Event ID: HTTP_PANIC, Description: %v\n%s", rec, debug.Stack())
				utils.WriteError(w, utils.Internal("Internal server error", nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
