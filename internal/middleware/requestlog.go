package middleware

import (
	"log/slog"
	"net/url"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLog writes one slog line per request.  The level follows the
// status: 5xx is an error, 4xx a warning, everything else info.
func RequestLog(lg *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", redactedURI(c.Request().URL),
				"status", v.Status,
				"remote_ip", v.RemoteIP,
				"duration_ms", v.Latency.Milliseconds(),
			}
			if id, ok := CurrentIdentity(c); ok {
				attrs = append(attrs, "user_id", id.ID)
			}
			if v.Error != nil {
				attrs = append(attrs, "err", v.Error.Error())
			}
			lg.Log(c.Request().Context(), levelForStatus(v.Status), "http request", attrs...)
			return nil
		},
	})
}

// redactedURI masks the websocket "token" query parameter so bearer
// tokens never reach the access log.
func redactedURI(u *url.URL) string {
	q := u.Query()
	if !q.Has("token") {
		return u.RequestURI()
	}
	q.Set("token", "REDACTED")
	masked := *u
	masked.RawQuery = q.Encode()
	return masked.RequestURI()
}

func levelForStatus(code int) slog.Level {
	if code >= 500 {
		return slog.LevelError
	}
	if code >= 400 {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
