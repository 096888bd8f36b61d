package controllers

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"TicketMarket/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func ipnReply(c *gin.Context, code, message string) {
	c.JSON(http.StatusOK, dto.VnpayIPNResp{RspCode: code, Message: message})
}

// VnpayIPN handles the server to server callback. VNPAY retries until it gets
// a recognised RspCode, so every branch answers 200.
func (h *Handler) VnpayIPN(c *gin.Context) {
	cb, err := h.payments.VerifyIPN(c.Request.URL.Query())
	switch {
	case errors.Is(err, utils.ErrInvalidSignature):
		ipnReply(c, "97", "Invalid signature")
		return
	case err != nil:
		ipnReply(c, "99", "Invalid request")
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"order_id":       cb.OrderID.Hex(),
		"response_code":  cb.ResponseCode,
		"transaction_no": cb.TransactionNo,
	})
	if !cb.Succeeded() {
		// The order stays pending and expires on schedule.
		log.Info(utils.ResponsePaymentMessage(cb.ResponseCode))
		ipnReply(c, "00", consts.MsgPaymentIgnore)
		return
	}

	_, err = h.checkout.ConfirmCapture(c.Request.Context(), cb.OrderID, decimal.New(cb.Amount, -2), cb.TransactionNo)
	switch {
	case err == nil:
		ipnReply(c, "00", "Confirm Success")
	case errors.Is(err, consts.ErrOrderNotFound):
		ipnReply(c, "01", "Order not found")
	case errors.Is(err, consts.ErrOrderAlreadyPaid), errors.Is(err, consts.ErrOrderNotPending):
		ipnReply(c, "02", "Order already confirmed")
	case errors.Is(err, consts.ErrPaymentAmountMismatch):
		ipnReply(c, "04", "Invalid amount")
	default:
		log.WithError(err).Error("confirming vnpay capture")
		ipnReply(c, "99", "Unknown error")
	}
}

// VnpayReturn is where the buyer's browser lands after paying. It only
// reports the outcome; the order is settled by the IPN.
func (h *Handler) VnpayReturn(c *gin.Context) {
	cb, err := h.payments.VerifyIPN(c.Request.URL.Query())
	if err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, err.Error())
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, utils.ResponsePaymentMessage(cb.ResponseCode), gin.H{
		"order_id":  cb.OrderID.Hex(),
		"succeeded": cb.Succeeded(),
	}, nil)
}
