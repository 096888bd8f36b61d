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

func (h *Handler) CreateCoupon(c *gin.Context) {
	var req dto.CreateCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	if validateErrs := utils.ValidateCreateCouponReq(req); len(validateErrs) > 0 {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, strings.Join(validateErrs, ", "))
		return
	}

	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}

	in := service.CouponInput{
		OrganizerID:  organizerID,
		Code:         req.Code,
		DiscountType: req.DiscountType,
		Value:        req.Value,
		EventID:      req.EventID,
		MaxUses:      req.MaxUses,
		MinPurchase:  req.MinPurchase,
		ValidUntil:   req.ValidUntil,
	}
	if req.ValidFrom != nil {
		in.ValidFrom = *req.ValidFrom
	}

	coupon, err := h.catalog.CreateCoupon(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusCreated, "", coupon, nil)
}

func (h *Handler) ListCoupons(c *gin.Context) {
	organizerID, ok := utils.GetAccountID(c)
	if !ok {
		return
	}
	coupons, err := h.catalog.ListCoupons(c.Request.Context(), organizerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", coupons, nil)
}

// PreviewCoupon tells a buyer what a code would take off a subtotal.
func (h *Handler) PreviewCoupon(c *gin.Context) {
	var req dto.PreviewCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, utils.HandlerValidation(err))
		return
	}
	if validateErrs := utils.ValidatePreviewCouponReq(req); len(validateErrs) > 0 {
		utils.ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, strings.Join(validateErrs, ", "))
		return
	}

	coupon, discount, err := h.checkout.PreviewCoupon(c.Request.Context(), req.EventID, req.Code, req.Subtotal)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.ResponseSuccess(c, http.StatusOK, "", dto.PreviewCouponResp{
		Code:     coupon.Code,
		Discount: discount,
		Subtotal: req.Subtotal,
	}, nil)
}
