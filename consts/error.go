package consts

import "errors"

var (
	// Capacity errors.
	ErrOutOfStock         = errors.New("ticket type is out of stock")
	ErrOrderLimitExceeded = errors.New("quantity exceeds the per-order limit")
	ErrSalesWindowClosed  = errors.New("ticket type is not on sale")
	ErrTicketTypeInactive = errors.New("ticket type is inactive")

	// State-conflict errors.
	ErrTicketAlreadyUsed       = errors.New("ticket already used")
	ErrTransferPending         = errors.New("ticket has a pending transfer")
	ErrCheckInConflict         = errors.New("ticket kept changing during check-in, scan again")
	ErrTransferAlreadyPending  = errors.New("ticket already has a pending transfer")
	ErrTransferAlreadyResolved = errors.New("transfer already resolved")
	ErrOrderAlreadyPaid        = errors.New("order already paid")
	ErrOrderNotPending         = errors.New("order is no longer pending")
	ErrReservationReleased     = errors.New("reservation was released before commit")
	ErrEventHasSales           = errors.New("event has sold or held tickets")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// Validation errors.
	ErrInvalidQuantity            = errors.New("quantity must be positive")
	ErrEmptyCart                  = errors.New("order has no lines")
	ErrTicketTypeNotInEvent       = errors.New("ticket type does not belong to event")
	ErrEventNotOnSale             = errors.New("event is not published")
	ErrCouponNotFound             = errors.New("coupon not found")
	ErrCouponInactive             = errors.New("coupon is inactive")
	ErrCouponExpired              = errors.New("coupon expired")
	ErrCouponNotYetValid          = errors.New("coupon not yet valid")
	ErrCouponUsageCapReached      = errors.New("coupon usage cap reached")
	ErrCouponBelowMinimumPurchase = errors.New("subtotal below coupon minimum purchase")
	ErrCouponWrongEventScope      = errors.New("coupon not valid for this event")
	ErrDuplicateCouponCode        = errors.New("coupon code already exists")
	ErrTicketReceivedViaTransfer  = errors.New("received tickets cannot be transferred again")
	ErrTransferToSelf             = errors.New("cannot transfer a ticket to yourself")
	ErrInvalidEmail               = errors.New("invalid email")
	ErrCapacityDecrease           = errors.New("capacity cannot drop below sold and held units")
	ErrInvalidSchedule            = errors.New("event must end after it starts")
	ErrInvalidPrice               = errors.New("price must not be negative")
	ErrInvalidCoupon              = errors.New("coupon definition is invalid")
	ErrInvalidTicketCode          = errors.New("ticket code is malformed")

	// Identity errors.
	ErrNotTicketHolder           = errors.New("account does not hold this ticket")
	ErrTransferRecipientMismatch = errors.New("transfer is addressed to another email")
	ErrTransferNotSender         = errors.New("only the sender can cancel a transfer")
	ErrNotOrderOwner             = errors.New("order belongs to another account")
	ErrNotEventOrganizer         = errors.New("account does not organize this event")

	// Not found.
	ErrEventNotFound       = errors.New("event not found")
	ErrTicketTypeNotFound  = errors.New("ticket type not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTransferNotFound    = errors.New("transfer not found")

	// Storage.
	ErrDuplicateIssueKey   = errors.New("ticket already issued for this unit")
	ErrDuplicateTicketCode = errors.New("ticket code collision")
	ErrCodeSpaceExhausted  = errors.New("could not generate a unique ticket code")

	// Payment.
	ErrPaymentProviderUnknown = errors.New("unknown payment provider")
	ErrPaymentAmountMismatch  = errors.New("payment amount does not match order total")

	// Jobs.
	ErrFatalDataNotFound = errors.New("job data not found")
	ErrFatalInvalidData  = errors.New("job data invalid")
)
