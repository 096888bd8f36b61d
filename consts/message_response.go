package consts

const (
	MsgGetSuccess    = "Fetched successfully."
	MsgCreateSuccess = "Created successfully."
	MsgUpdateSuccess = "Updated successfully."
	MsgDeleteSuccess = "Deleted successfully."

	MsgGetErr    = "Could not fetch data!"
	MsgCreateErr = "Could not create data!"
	MsgUpdateErr = "Could not update data!"
	MsgDeleteErr = "Could not delete data!"
)

const (
	QueueNameNotification = "notification_queue"
	BlacklistTokenPrefix  = "blacklist:accesstoken:"
)

const (
	NotifyOrderPaid         = "order_paid"
	NotifyTransferInitiated = "transfer_initiated"
	NotifyTransferAccepted  = "transfer_accepted"
)

const (
	MsgSystemErr     = "Internal server error!"
	MsgInvalidInput  = "Invalid request data!"
	MsgUnauthorized  = "Missing or invalid access token!"
	MsgForbidden     = "You are not allowed to access this resource!"
	MsgPaymentIgnore = "Payment callback ignored."
)

const (
	ContextAccountID    = "account_id"
	ContextAccountEmail = "account_email"
	ContextAccountName  = "account_name"
	ContextRoles        = "roles"
	ContextTokenID      = "token_id"
)
