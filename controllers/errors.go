package controllers

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/service"
	"TicketMarket/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	notFoundErrors = []error{
		consts.ErrEventNotFound,
		consts.ErrTicketTypeNotFound,
		consts.ErrOrderNotFound,
		consts.ErrReservationNotFound,
		consts.ErrTicketNotFound,
		consts.ErrTransferNotFound,
	}
	forbiddenErrors = []error{
		consts.ErrNotTicketHolder,
		consts.ErrTransferRecipientMismatch,
		consts.ErrTransferNotSender,
		consts.ErrNotOrderOwner,
		consts.ErrNotEventOrganizer,
	}
	conflictErrors = []error{
		consts.ErrTicketAlreadyUsed,
		consts.ErrTransferPending,
		consts.ErrCheckInConflict,
		consts.ErrTransferAlreadyPending,
		consts.ErrTransferAlreadyResolved,
		consts.ErrOrderAlreadyPaid,
		consts.ErrOrderNotPending,
		consts.ErrReservationReleased,
		consts.ErrEventHasSales,
		consts.ErrInvalidStatusTransition,
		consts.ErrDuplicateCouponCode,
		consts.ErrCapacityDecrease,
	}
	badRequestErrors = []error{
		consts.ErrInvalidQuantity,
		consts.ErrEmptyCart,
		consts.ErrTicketTypeNotInEvent,
		consts.ErrEventNotOnSale,
		consts.ErrCouponNotFound,
		consts.ErrCouponInactive,
		consts.ErrCouponExpired,
		consts.ErrCouponNotYetValid,
		consts.ErrCouponUsageCapReached,
		consts.ErrCouponBelowMinimumPurchase,
		consts.ErrCouponWrongEventScope,
		consts.ErrTicketReceivedViaTransfer,
		consts.ErrTransferToSelf,
		consts.ErrInvalidEmail,
		consts.ErrInvalidSchedule,
		consts.ErrInvalidPrice,
		consts.ErrInvalidCoupon,
		consts.ErrInvalidTicketCode,
		consts.ErrPaymentProviderUnknown,
		consts.ErrPaymentAmountMismatch,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound
	case matchesAny(err, forbiddenErrors):
		return http.StatusForbidden
	case matchesAny(err, conflictErrors), service.IsCapacityError(err):
		return http.StatusConflict
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, err error) {
	var cart *service.CartError
	if errors.As(err, &cart) {
		respondCartError(c, cart)
		return
	}

	var used *service.AlreadyUsedError
	if errors.As(err, &used) {
		utils.ResponseError(c, http.StatusConflict, "", gin.H{"reason": err.Error(), "used_at": used.UsedAt})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		utils.ResponseError(c, status, consts.MsgSystemErr, "")
		return
	}
	utils.ResponseError(c, status, "", err.Error())
}

// respondCartError reports every rejected line. A cart refused only for
// availability is a conflict; anything else is unprocessable.
func respondCartError(c *gin.Context, cart *service.CartError) {
	lines := make([]dto.LineErrorResp, 0, len(cart.Lines))
	allCapacity := true
	for _, l := range cart.Lines {
		lines = append(lines, dto.LineErrorResp{TicketTypeID: l.TicketTypeID.Hex(), Reason: l.Err.Error()})
		if !service.IsCapacityError(l.Err) {
			allCapacity = false
		}
	}
	status := http.StatusUnprocessableEntity
	if allCapacity {
		status = http.StatusConflict
	}
	utils.ResponseError(c, status, "", lines)
}
