package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateTicketTypeReq struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	MaxPerOrder int             `json:"max_per_order" binding:"gte=0"`
	SalesStart  *time.Time      `json:"sales_start,omitempty"`
	SalesEnd    *time.Time      `json:"sales_end,omitempty"`
}

type UpdateCapacityReq struct {
	Capacity int `json:"capacity" binding:"required,gt=0"`
}

type SetActiveReq struct {
	Active *bool `json:"active" binding:"required"`
}
