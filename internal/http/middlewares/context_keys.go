package middlewares

const (
	CtxRequestID   = "request_id"
	CtxPrincipal   = "auth.principal"
	CtxProjectRole = "auth.projectRole"
)
