package controllers

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/service"
	"TicketMarket/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateOrder(c *gin.Context) {
	eventID, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}

	buyer, ok := currentAccount(c)
	if !ok {
		return
	}

	lines := make([]service.LineItem, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.LineItem{TicketTypeID: l.TicketTypeID, Quantity: l.Quantity})
	}

	order, err := h.checkout.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		BuyerID:    buyer.ID,
		BuyerEmail: buyer.Email,
		BuyerName:  buyer.Name,
		EventID:    eventID,
		Lines:      lines,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusCreated, "", order, nil)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	order, err := h.checkout.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if order.BuyerID != buyerID {
		respondServiceError(c, consts.ErrNotOrderOwner)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", order, nil)
}

func (h *Handler) ListOrders(c *gin.Context) {
	buyerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	orders, err := h.checkout.ListOrders(c.Request.Context(), buyerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	pageNo, pageSize := utils.PageParams(c)
	page, pagination := utils.Paginate(orders, pageNo, pageSize)
	utils.ResponseSuccess(c, http.StatusOK, "", page, pagination)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	order, err := h.checkout.CancelOrder(c.Request.Context(), id, buyerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", order, nil)
}

// StartPayment returns the provider page the buyer is redirected to.
func (h *Handler) StartPayment(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	var req dto.StartPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	buyerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	redirect, err := h.checkout.StartPayment(c.Request.Context(), id, buyerID, req.Provider, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", dto.StartPaymentResp{RedirectURL: redirect}, nil)
}
