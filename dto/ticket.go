package dto

import "go.mongodb.org/mongo-driver/bson/primitive"

type CheckInReq struct {
	Code string `json:"code" binding:"required"`
}

type ComplimentaryReq struct {
	TicketTypeID   primitive.ObjectID `json:"ticket_type_id" binding:"required"`
	RecipientID    primitive.ObjectID `json:"recipient_id" binding:"required"`
	RecipientName  string             `json:"recipient_name"`
	RecipientEmail string             `json:"recipient_email" binding:"required,email"`
}

type InitiateTransferReq struct {
	ToEmail string `json:"to_email" binding:"required"`
}
