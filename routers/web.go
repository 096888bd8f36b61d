package routers

import (
	"TicketMarket/consts"
	"TicketMarket/controllers"
	"TicketMarket/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func Register(router *gin.RouterGroup, h *controllers.Handler, redisClient *redis.Client) {
	auth := middlewares.AuthorizeJWTMiddleware(redisClient)
	viewer := middlewares.OptionalJWTMiddleware(redisClient)
	organizer := middlewares.RequireRole(consts.RoleOrganizer)
	doorStaff := middlewares.RequireRole(consts.RoleOrganizer, consts.RoleStaff)

	//Event
	eventRouter := router.Group("events")
	{
		eventRouter.GET("", h.ListEvents)
		eventRouter.GET("/:id", viewer, h.GetEvent)
		eventRouter.GET("/:id/ticket-types", viewer, h.ListTicketTypes)

		eventRouter.POST("", auth, organizer, h.CreateEvent)
		eventRouter.PATCH("/:id/publish", auth, organizer, h.PublishEvent)
		eventRouter.PATCH("/:id/cancel", auth, organizer, h.CancelEvent)
		eventRouter.PATCH("/:id/complete", auth, organizer, h.CompleteEvent)
		eventRouter.DELETE("/:id", auth, organizer, h.DeleteEvent)
		eventRouter.POST("/:id/ticket-types", auth, organizer, h.CreateTicketType)
		eventRouter.POST("/:id/complimentary", auth, organizer, h.IssueComplimentary)
		eventRouter.POST("/:id/staff", auth, organizer, h.AssignStaff)
		eventRouter.DELETE("/:id/staff/:accountId", auth, organizer, h.UnassignStaff)
		eventRouter.POST("/:id/check-in", auth, doorStaff, h.CheckIn)
		eventRouter.POST("/:id/orders", auth, h.CreateOrder)
	}

	//Ticket type
	ticketTypeRouter := router.Group("ticket-types")
	{
		ticketTypeRouter.Use(auth, organizer)
		ticketTypeRouter.PATCH("/:id/capacity", h.UpdateCapacity)
		ticketTypeRouter.PATCH("/:id/active", h.SetTicketTypeActive)
	}

	//Coupon
	couponRouter := router.Group("coupons")
	{
		couponRouter.Use(auth)
		couponRouter.POST("", organizer, h.CreateCoupon)
		couponRouter.GET("", organizer, h.ListCoupons)
		couponRouter.POST("/preview", h.PreviewCoupon)
	}

	//Order
	orderRouter := router.Group("orders")
	{
		orderRouter.Use(auth)
		orderRouter.GET("", h.ListOrders)
		orderRouter.GET("/:id", h.GetOrder)
		orderRouter.POST("/:id/cancel", h.CancelOrder)
		orderRouter.POST("/:id/payment", h.StartPayment)
	}

	//Payment callbacks are signed by the provider, not by our tokens.
	router.GET("/payments/vnpay/ipn", h.VnpayIPN)
	router.GET("/payments/vnpay/return", h.VnpayReturn)

	//Ticket
	ticketRouter := router.Group("tickets")
	{
		ticketRouter.Use(auth)
		ticketRouter.GET("/mine", h.MyTickets)
		ticketRouter.GET("/:id", h.GetTicket)
		ticketRouter.GET("/:id/qr", h.TicketQRCode)
		ticketRouter.POST("/:id/transfers", h.InitiateTransfer)
	}

	//Transfer
	transferRouter := router.Group("transfers")
	{
		transferRouter.Use(auth)
		transferRouter.GET("/incoming", h.IncomingTransfers)
		transferRouter.POST("/:id/accept", h.AcceptTransfer)
		transferRouter.POST("/:id/reject", h.RejectTransfer)
		transferRouter.POST("/:id/cancel", h.CancelTransfer)
	}
}
