package dto

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VenueReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	MapURL  string `json:"map_url" binding:"omitempty,url"`
}

type CreateEventReq struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
	Venue       VenueReq  `json:"venue"`
}

type AssignStaffReq struct {
	AccountID primitive.ObjectID `json:"account_id" binding:"required"`
}
