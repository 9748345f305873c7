package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/afigueroah/shucway-app-main-sub002/internal/apierror"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

const SesionCajaKey = "sesion_caja"

// GuardiaCaja is the subset of service.CajaService the sale guard needs.
type GuardiaCaja interface {
	SesionAbierta(ctx context.Context) (*model.SesionCaja, error)
}

// RequireCajaAbierta blocks sale entry while no cash session is open. The open
// session is stored under SesionCajaKey for the downstream handler.
func RequireCajaAbierta(svc GuardiaCaja) gin.HandlerFunc {
	return func(c *gin.Context) {
		sesion, err := svc.SesionAbierta(c.Request.Context())
		if errors.Is(err, service.ErrSinSesionActiva) {
			c.AbortWithStatusJSON(http.StatusConflict, apierror.NewCodigo(
				"Abra una sesión de caja primero", service.CodigoError(err)))
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(SesionCajaKey, sesion)
		c.Next()
	}
}
