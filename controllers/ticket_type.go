package controllers

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/service"
	"TicketMarket/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateTicketType(c *gin.Context) {
	eventID, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateTicketTypeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	if validateErrs := utils.ValidateCreateTicketTypeReq(req); len(validateErrs) > 0 {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, strings.Join(validateErrs, ", "))
		return
	}

	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	tt, err := h.catalog.CreateTicketType(c.Request.Context(), organizerID, service.TicketTypeInput{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		MaxPerOrder: req.MaxPerOrder,
		SalesStart:  req.SalesStart,
		SalesEnd:    req.SalesEnd,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusCreated, "", tt, nil)
}

func (h *Handler) ListTicketTypes(c *gin.Context) {
	eventID, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	items, err := h.catalog.ListTicketTypes(c.Request.Context(), eventID, utils.ViewerID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", items, nil)
}

// UpdateCapacity only ever raises the total; lowering it is refused by the
// catalog.
func (h *Handler) UpdateCapacity(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCapacityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	tt, err := h.catalog.IncreaseCapacity(c.Request.Context(), id, organizerID, req.Capacity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", tt, nil)
}

func (h *Handler) SetTicketTypeActive(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	tt, err := h.catalog.SetTicketTypeActive(c.Request.Context(), id, organizerID, *req.Active)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", tt, nil)
}
