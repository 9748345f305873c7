package handler

import (
	"net/http"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/model"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

type TransferenciasHandler struct{ svc service.TransferenciaService }

func NewTransferenciasHandler(svc service.TransferenciaService) *TransferenciasHandler {
	return &TransferenciasHandler{svc: svc}
}

// Listar godoc
// @Summary Lista las transferencias de la sesion con su estado de verificacion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.TransferenciasSesionResponse
// @Router /v1/caja/{id}/transferencias [get]
func (h *TransferenciasHandler) Listar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarEstado marks a transfer as received or back to pending.
func (h *TransferenciasHandler) CambiarEstado(c *gin.Context) {
	ventaID, ok := paramUUID(c, "venta_id")
	if !ok {
		return
	}
	var req dto.CambiarEstadoTransferenciaRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var (
		resp *dto.TransferenciaResponse
		err  error
	)
	if model.EstadoTransferencia(req.Estado) == model.TransferenciaRecibida {
		resp, err = h.svc.MarcarRecibida(c.Request.Context(), ventaID)
	} else {
		resp, err = h.svc.MarcarPendiente(c.Request.Context(), ventaID)
	}
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TransferenciasHandler) ActualizarReferencia(c *gin.Context) {
	ventaID, ok := paramUUID(c, "venta_id")
	if !ok {
		return
	}
	var req dto.ActualizarReferenciaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarReferencia(c.Request.Context(), ventaID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
