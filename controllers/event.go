package controllers

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/service"
	"TicketMarket/utils"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	if validateErrs := utils.ValidateCreateEventReq(req); len(validateErrs) > 0 {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, strings.Join(validateErrs, ", "))
		return
	}

	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	event, err := h.catalog.CreateEvent(c.Request.Context(), service.EventInput{
		OrganizerID:  organizerID,
		Title:        req.Title,
		Description:  req.Description,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		VenueName:    req.Venue.Name,
		VenueAddress: req.Venue.Address,
		VenueMapURL:  req.Venue.MapURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusCreated, "", event, nil)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.catalog.ListPublishedEvents(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	pageNo, pageSize := utils.PageParams(c)
	page, pagination := utils.Paginate(events, pageNo, pageSize)
	utils.ResponseSuccess(c, http.StatusOK, "", page, pagination)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	event, err := h.catalog.ViewEvent(c.Request.Context(), id, utils.ViewerID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", event, nil)
}

type eventTransition func(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error)

// changeEventStatus runs one lifecycle transition on behalf of the organizer.
func (h *Handler) changeEventStatus(c *gin.Context, transition eventTransition) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	event, err := transition(c.Request.Context(), id, organizerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", event, nil)
}

func (h *Handler) PublishEvent(c *gin.Context) {
	h.changeEventStatus(c, h.catalog.PublishEvent)
}

func (h *Handler) CancelEvent(c *gin.Context) {
	h.changeEventStatus(c, h.catalog.CancelEvent)
}

func (h *Handler) CompleteEvent(c *gin.Context) {
	h.changeEventStatus(c, h.catalog.CompleteEvent)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteEvent(c.Request.Context(), id, organizerID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", nil, nil)
}

type staffChange func(ctx context.Context, eventID, organizerID, staffID primitive.ObjectID) (*collections.Event, error)

func (h *Handler) changeStaff(c *gin.Context, eventID, staffID primitive.ObjectID, change staffChange) {
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	event, err := change(c.Request.Context(), eventID, organizerID, staffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", event, nil)
}

// AssignStaff lets another account check tickets in at the event.
func (h *Handler) AssignStaff(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignStaffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	h.changeStaff(c, id, req.AccountID, h.catalog.AssignStaff)
}

func (h *Handler) UnassignStaff(c *gin.Context) {
	id, ok := utils.ParamObjectID(c, "id")
	if !ok {
		return
	}
	staffID, ok := utils.ParamObjectID(c, "accountId")
	if !ok {
		return
	}
	h.changeStaff(c, id, staffID, h.catalog.UnassignStaff)
}
