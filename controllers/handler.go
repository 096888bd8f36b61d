package controllers

import (
	"TicketMarket/collections"
	"TicketMarket/service"
	"TicketMarket/utils"
	"context"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CatalogService interface {
	CreateEvent(ctx context.Context, in service.EventInput) (*collections.Event, error)
	ViewEvent(ctx context.Context, id, viewerID primitive.ObjectID) (*collections.Event, error)
	ListPublishedEvents(ctx context.Context) ([]collections.Event, error)
	PublishEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error)
	CancelEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error)
	CompleteEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error)
	DeleteEvent(ctx context.Context, id, organizerID primitive.ObjectID) error
	AssignStaff(ctx context.Context, eventID, organizerID, staffID primitive.ObjectID) (*collections.Event, error)
	UnassignStaff(ctx context.Context, eventID, organizerID, staffID primitive.ObjectID) (*collections.Event, error)
	CreateTicketType(ctx context.Context, organizerID primitive.ObjectID, in service.TicketTypeInput) (*collections.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID, viewerID primitive.ObjectID) ([]collections.TicketType, error)
	IncreaseCapacity(ctx context.Context, id, organizerID primitive.ObjectID, capacity int) (*collections.TicketType, error)
	SetTicketTypeActive(ctx context.Context, id, organizerID primitive.ObjectID, active bool) (*collections.TicketType, error)
	CreateCoupon(ctx context.Context, in service.CouponInput) (*collections.Coupon, error)
	ListCoupons(ctx context.Context, organizerID primitive.ObjectID) ([]collections.Coupon, error)
}

type CheckoutService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*collections.Order, error)
	GetOrder(ctx context.Context, orderID primitive.ObjectID) (*collections.Order, error)
	ListOrders(ctx context.Context, buyerID primitive.ObjectID) ([]collections.Order, error)
	CancelOrder(ctx context.Context, orderID, buyerID primitive.ObjectID) (*collections.Order, error)
	StartPayment(ctx context.Context, orderID, buyerID primitive.ObjectID, provider, clientIP string) (string, error)
	ConfirmCapture(ctx context.Context, orderID primitive.ObjectID, amount decimal.Decimal, ref string) (*collections.Order, error)
	PreviewCoupon(ctx context.Context, eventID primitive.ObjectID, code string, subtotal decimal.Decimal) (*collections.Coupon, decimal.Decimal, error)
}

type TicketService interface {
	IssueComplimentary(ctx context.Context, req service.ComplimentaryRequest) (*collections.Ticket, error)
	HeldTicket(ctx context.Context, id, holderID primitive.ObjectID) (*collections.Ticket, error)
	TicketsOf(ctx context.Context, holderID primitive.ObjectID) ([]collections.Ticket, error)
}

type CheckInService interface {
	CheckIn(ctx context.Context, code string, eventID, operatorID primitive.ObjectID) (*service.CheckInResult, error)
}

type TransferService interface {
	Initiate(ctx context.Context, ticketID primitive.ObjectID, from service.Account, toEmail string) (*collections.TicketTransfer, error)
	Accept(ctx context.Context, transferID primitive.ObjectID, by service.Account) (*collections.TicketTransfer, error)
	Reject(ctx context.Context, transferID primitive.ObjectID, by service.Account) (*collections.TicketTransfer, error)
	Cancel(ctx context.Context, transferID primitive.ObjectID, by service.Account) (*collections.TicketTransfer, error)
	ListIncoming(ctx context.Context, email string) ([]collections.TicketTransfer, error)
}

// PaymentVerifier checks a provider callback before any order is touched.
type PaymentVerifier interface {
	VerifyIPN(params url.Values) (*utils.VnpayCallback, error)
}

type Handler struct {
	catalog   CatalogService
	checkout  CheckoutService
	tickets   TicketService
	checkIn   CheckInService
	transfers TransferService
	payments  PaymentVerifier
}

func NewHandler(catalog CatalogService, checkout CheckoutService, tickets TicketService, checkIn CheckInService, transfers TransferService, payments PaymentVerifier) *Handler {
	return &Handler{
		catalog:   catalog,
		checkout:  checkout,
		tickets:   tickets,
		checkIn:   checkIn,
		transfers: transfers,
		payments:  payments,
	}
}

// currentAccount builds the caller identity from the token claims.
func currentAccount(c *gin.Context) (service.Account, bool) {
	id, ok := utils.GetAccountID(c)
	if !ok {
		return service.Account{}, false
	}
	return service.Account{
		ID:    id,
		Email: utils.GetAccountEmail(c),
		Name:  utils.GetAccountName(c),
	}, true
}
