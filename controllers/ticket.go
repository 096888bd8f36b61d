package controllers

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/service"
	"TicketMarket/utils"
	"TicketMarket/view"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *Handler) MyTickets(c *gin.Context) {
	holderID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	tickets, err := h.tickets.TicketsOf(c.Request.Context(), holderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	pageNo, pageSize := utils.PageParams(c)
	page, pagination := utils.Paginate(tickets, pageNo, pageSize)
	utils.ResponseSuccess(c, http.StatusOK, "", page, pagination)
}

func (h *Handler) GetTicket(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	holderID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	t, err := h.tickets.HeldTicket(c.Request.Context(), id, holderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", t, nil)
}

// TicketQRCode renders the admission code of a held ticket as a PNG.
func (h *Handler) TicketQRCode(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	holderID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	t, err := h.tickets.HeldTicket(c.Request.Context(), id, holderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	png, err := view.QRCodePNG(t.Code)
	if err != nil {
		logrus.WithError(err).WithField("ticket_id", t.ID.Hex()).Error("rendering qr code")
		utils.ResponseError(c, http.StatusInternalServerError, consts.MsgSystemErr, "")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) IssueComplimentary(c *gin.Context) {
	eventID, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	var req dto.ComplimentaryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	t, err := h.tickets.IssueComplimentary(c.Request.Context(), service.ComplimentaryRequest{
		EventID:        eventID,
		TicketTypeID:   req.TicketTypeID,
		OrganizerID:    organizerID,
		RecipientID:    req.RecipientID,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusCreated, "", t, nil)
}

// CheckIn admits the bearer of a code at the door of one event. Only the
// event's organizer and its assigned staff may scan.
func (h *Handler) CheckIn(c *gin.Context) {
	eventID, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	operatorID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	var req dto.CheckInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}

	res, err := h.checkIn.CheckIn(c.Request.Context(), req.Code, eventID, operatorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", res, nil)
}
