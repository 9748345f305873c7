package middleware

import (
	"net/http"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const mensajeErrorInterno = "Error interno del servidor"

// rutasSilenciosas are polled by probes and scrapers; logging them is noise.
var rutasSilenciosas = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// ErrorHandler answers 500 for errors a handler attached with c.Error and did
// not map itself. Clients only ever see a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		contexto(log.Error(), c).
			Str("route", c.FullPath()).
			Err(err.Err).
			Msg("unhandled error")

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(mensajeErrorInterno))
		}
	}
}

// Recovery turns a panic into a 500 so a broken request never takes the till down.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				contexto(log.Error(), c).
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(mensajeErrorInterno))
			}
		}()
		c.Next()
	}
}

// Logger writes one line per request. 5xx log at error, 4xx at warn.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if rutasSilenciosas[c.Request.URL.Path] {
			return
		}

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		contexto(ev, c).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// contexto adds the request id, method, path and, once JWTAuth ran, the operator.
func contexto(ev *zerolog.Event, c *gin.Context) *zerolog.Event {
	ev = ev.
		Str("request_id", c.GetString(RequestIDKey)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path)
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*JWTClaims); ok {
			ev = ev.Str("operador", claims.UserID).Str("rol", claims.Rol)
		}
	}
	return ev
}
