package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/afigueroah/shucway-app-main-sub002/internal/apierror"
	"github.com/afigueroah/shucway-app-main-sub002/internal/infra"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramUUID parses a path parameter, answering 400 when it is malformed.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

func paginacion(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// responderError maps service errors onto HTTP statuses. Anything unknown is
// handed to the error middleware, which logs it and answers a generic 500.
func responderError(c *gin.Context, err error) {
	codigo := service.CodigoError(err)
	var pendientes *service.TransferenciasPendientesError

	switch {
	case errors.As(err, &pendientes):
		body := apierror.NewCodigo(service.ErrTransferenciasPendientes.Error(), codigo)
		for _, id := range pendientes.VentaIDs {
			body.VentaIDs = append(body.VentaIDs, id.String())
		}
		c.JSON(http.StatusUnprocessableEntity, body)

	case errors.Is(err, service.ErrMontoInicialInvalido),
		errors.Is(err, service.ErrDenominacionDesconocida),
		errors.Is(err, service.ErrConteoNegativo),
		errors.Is(err, service.ErrConteoFueraDeRango):
		c.JSON(http.StatusBadRequest, apierror.NewCodigo(err.Error(), codigo))

	case errors.Is(err, service.ErrSesionYaAbierta),
		errors.Is(err, service.ErrSinSesionActiva),
		errors.Is(err, service.ErrSesionYaCerrada):
		c.JSON(http.StatusConflict, apierror.NewCodigo(err.Error(), codigo))

	case errors.Is(err, service.ErrEfectivoNoContado),
		errors.Is(err, service.ErrJustificacionRequerida):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewCodigo(err.Error(), codigo))

	case errors.Is(err, service.ErrSesionNoEncontrada),
		errors.Is(err, service.ErrVentaDesconocida):
		c.JSON(http.StatusNotFound, apierror.NewCodigo(err.Error(), codigo))

	case errors.Is(err, infra.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Registro de ventas no disponible, intente en un momento"))

	default:
		_ = c.Error(err)
	}
}
