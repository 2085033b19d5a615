package chi

import (
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-tester/internal/origdst"
	"github.com/marcelsud/webhook-tester/webhook"
)

// captureWebhook handles every unreserved request. The sender always gets
// 200 with an empty body, whatever happens downstream.
func captureWebhook(webhookService webhook.UseCase, ports origdst.Resolver, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received := time.Now()
		oplog := httplog.LogEntry(r.Context())

		body, truncated, err := readBody(r.Body, maxBody)
		if err != nil {
			oplog.Warn().Err(err).Int("read", len(body)).Msg("reading webhook body")
		}
		if truncated {
			oplog.Warn().Int64("limit", maxBody).Msg("webhook body truncated")
		}

		capture := webhook.Capture{
			ClientIP:     clientIP(r.RemoteAddr),
			Method:       r.Method,
			Path:         r.URL.EscapedPath(),
			Headers:      r.Header,
			Body:         body,
			OriginalPort: ports.Port(r.Context()),
			ReceivedAt:   received,
		}

		record, err := webhookService.Receive(r.Context(), capture)
		if err != nil {
			oplog.Error().Err(err).Str("path", capture.Path).Msg("webhook capture incomplete")
		} else {
			oplog.Info().
				Str("method", record.Method).
				Str("path", record.Path).
				Str("client_ip", record.ClientIP).
				Int("original_port", record.OriginalPort).
				Msg("webhook captured")
		}

		w.WriteHeader(http.StatusOK)
	})
}

// readBody reads at most limit bytes. A non-positive limit reads everything.
func readBody(body io.ReadCloser, limit int64) ([]byte, bool, error) {
	if body == nil {
		return nil, false, nil
	}
	defer body.Close()

	if limit <= 0 {
		b, err := io.ReadAll(body)
		return b, false, err
	}
	b, err := io.ReadAll(io.LimitReader(body, limit+1))
	if int64(len(b)) > limit {
		return b[:limit], true, err
	}
	return b, false, err
}

// clientIP returns the host part of the peer address
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
