package controllers

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/service"
	"TicketMarket/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) InitiateTransfer(c *gin.Context) {
	ticketID, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	var req dto.InitiateTransferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	from, ok := currentAccount(c)
	if !ok {
		return
	}

	tr, err := h.transfers.Initiate(c.Request.Context(), ticketID, from, req.ToEmail)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusCreated, "", tr, nil)
}

// IncomingTransfers lists the pending offers addressed to the caller's email.
func (h *Handler) IncomingTransfers(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		return
	}
	items, err := h.transfers.ListIncoming(c.Request.Context(), account.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", items, nil)
}

type transferResolution func(ctx context.Context, transferID primitive.ObjectID, by service.Account) (*collections.TicketTransfer, error)

func (h *Handler) resolveTransfer(c *gin.Context, resolve transferResolution) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	account, ok := currentAccount(c)
	if !ok {
		return
	}
	tr, err := resolve(c.Request.Context(), id, account)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", tr, nil)
}

func (h *Handler) AcceptTransfer(c *gin.Context) {
	h.resolveTransfer(c, h.transfers.Accept)
}

func (h *Handler) RejectTransfer(c *gin.Context) {
	h.resolveTransfer(c, h.transfers.Reject)
}

func (h *Handler) CancelTransfer(c *gin.Context) {
	h.resolveTransfer(c, h.transfers.Cancel)
}
