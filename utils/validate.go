package utils

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// HandlerValidation flattens binding errors into one readable line.
func HandlerValidation(err error) string {
	if err == nil {
		return ""
	}
	var errVa validator.ValidationErrors
	if !errors.As(err, &errVa) {
		return err.Error()
	}

	msgs := make([]string, 0, len(errVa))
	for _, e := range errVa {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s is not a valid email", field))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s is not a valid url", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
		case "gt", "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

// Event
func ValidateCreateEventReq(req dto.CreateEventReq) []string {
	var errs []string
	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, "title must not be blank")
	}
	if !req.EndAt.After(req.StartAt) {
		errs = append(errs, "end_at must be after start_at")
	}
	return errs
}

// Ticket type
func ValidateCreateTicketTypeReq(req dto.CreateTicketTypeReq) []string {
	var errs []string
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, "name must not be blank")
	}
	if req.Price.IsNegative() {
		errs = append(errs, "price must not be negative")
	}
	if !wholeCents(req.Price) {
		errs = append(errs, "price must not have more than 2 decimal places")
	}
	if req.MaxPerOrder > req.Quantity {
		errs = append(errs, "max_per_order must not exceed quantity")
	}
	if req.SalesStart != nil && req.SalesEnd != nil && !req.SalesEnd.After(*req.SalesStart) {
		errs = append(errs, "sales_end must be after sales_start")
	}
	return errs
}

// Coupon
func ValidateCreateCouponReq(req dto.CreateCouponReq) []string {
	var errs []string
	if strings.TrimSpace(req.Code) == "" {
		errs = append(errs, "code must not be blank")
	}
	if !req.Value.IsPositive() {
		errs = append(errs, "value must be positive")
	}
	if req.DiscountType == consts.DiscountPercentage && req.Value.GreaterThan(hundred) {
		errs = append(errs, "percentage value must not exceed 100")
	}
	if req.DiscountType == consts.DiscountFixed && !wholeCents(req.Value) {
		errs = append(errs, "fixed value must not have more than 2 decimal places")
	}
	if req.MinPurchase.IsNegative() {
		errs = append(errs, "min_purchase must not be negative")
	}
	if !wholeCents(req.MinPurchase) {
		errs = append(errs, "min_purchase must not have more than 2 decimal places")
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidUntil.After(*req.ValidFrom) {
		errs = append(errs, "valid_until must be after valid_from")
	}
	return errs
}

func ValidatePreviewCouponReq(req dto.PreviewCouponReq) []string {
	var errs []string
	if req.Subtotal.IsNegative() {
		errs = append(errs, "subtotal must not be negative")
	}
	return errs
}
