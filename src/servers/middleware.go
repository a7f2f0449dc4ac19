package servers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

func logRequests(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.RequestURI,
				"remote_addr": r.RemoteAddr,
			}).Debug("http request")
			handler.ServeHTTP(w, r)
		})
	}
}
