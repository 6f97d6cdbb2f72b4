package middlewares

// gin context keys shared between middlewares and handlers
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
)
