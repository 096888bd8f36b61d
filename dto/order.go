package dto

import "go.mongodb.org/mongo-driver/bson/primitive"

type LineItemReq struct {
	TicketTypeID primitive.ObjectID `json:"ticket_type_id" binding:"required"`
	Quantity     int                `json:"quantity"`
}

type CreateOrderReq struct {
	Lines      []LineItemReq `json:"lines" binding:"required,min=1,dive"`
	CouponCode string        `json:"coupon_code"`
}

// LineErrorResp is one rejected cart line.
type LineErrorResp struct {
	TicketTypeID string `json:"ticket_type_id"`
	Reason       string `json:"reason"`
}

type StartPaymentReq struct {
	Provider string `json:"provider" binding:"required"`
}

type StartPaymentResp struct {
	RedirectURL string `json:"redirect_url"`
}

// VnpayIPNResp is the body VNPAY expects back from the IPN endpoint.
type VnpayIPNResp struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
