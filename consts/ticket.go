package consts

type TicketTransferStatus string

const (
	TicketTransferNone      TicketTransferStatus = "none"
	TicketTransferPending   TicketTransferStatus = "pending"
	TicketTransferCompleted TicketTransferStatus = "completed"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferAccepted  TransferStatus = "accepted"
	TransferRejected  TransferStatus = "rejected"
	TransferCancelled TransferStatus = "cancelled"
)

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)
