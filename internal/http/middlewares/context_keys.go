package middlewares

type ctxKey string

const (
	// KeyUserID marks the authenticated account id on the request's
	// standard context (see actorctx).
	KeyUserID ctxKey = "user_id"
)

const (
	ctxPrincipalKey = "auth.principal"
	ctxUserIDKey    = "auth.userID"
	ctxRoleKey      = "auth.role"
)
