// Package httprpc holds the pieces shared by the XML-RPC and JSON-RPC
// HTTP adapters (§4.6): request logging and the common POST-only and
// body-size enforcement every adapter applies before handing a decoded
// request off to the same registry.Registry the binary responder uses.
// The request's Content-Type header is not checked.
package httprpc

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger logs one line per request with method, path, status, and
// duration, adapted from the teacher's wallet-API request logger to use a
// structured *logrus.Entry instead of the package-level logger.
func Logger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if log != nil {
				log.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.RequestURI,
					"status":   sw.status,
					"duration": time.Since(start),
				}).Info("http rpc request")
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequirePost rejects any method other than POST, the only method §4.6
// defines for either adapter.
func RequirePost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodyBytes caps the request body size, mirroring the frame-size limits
// the binary responder gets for free from its self-delimiting encoding.
const MaxBodyBytes = 8 << 20

func LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
