package handler

import (
	"net/http"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/middleware"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Estado godoc
// @Summary Indica si hay una sesion de caja abierta
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.EstadoCajaResponse
// @Router /v1/caja/estado [get]
func (h *CajaHandler) Estado(c *gin.Context) {
	resp, err := h.svc.EstadoActual(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SesionActiva answers with the open session stored by middleware.RequireCajaAbierta.
func (h *CajaHandler) SesionActiva(c *gin.Context) {
	sesion := c.MustGet(middleware.SesionCajaKey).(*model.SesionCaja)
	resp, err := h.svc.ObtenerSesion(c.Request.Context(), sesion.ID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), middleware.OperadorID(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Aplica el arqueo y cierra la sesion abierta
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Arqueo por denominacion"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), middleware.OperadorID(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReinicioForzado ends the open session without preconditions. Administrators only.
func (h *CajaHandler) ReinicioForzado(c *gin.Context) {
	resp, err := h.svc.ReiniciarForzado(c.Request.Context(), middleware.OperadorID(c))
	if err != nil {
		responderError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusOK, gin.H{"reiniciada": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reiniciada": true, "sesion": resp})
}

// TotalArqueo gives live feedback while the cashier counts.
func (h *CajaHandler) TotalArqueo(c *gin.Context) {
	var req dto.TotalArqueoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.TotalArqueo(req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial returns a paginated list of sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	page, limit := paginacion(c)
	resp, total, err := h.svc.Historial(c.Request.Context(), page, limit)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "total": total, "page": page, "limit": limit})
}

// ObtenerSesion godoc
// @Summary Obtiene una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id} [get]
func (h *CajaHandler) ObtenerSesion(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerSesion(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CajaHandler) ResumenVentas(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ResumenVentas(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

