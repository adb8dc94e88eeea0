package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmorel/userhub/internal/auth"
	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/http/middlewares"
	"github.com/rmorel/userhub/internal/observability"
	"github.com/rmorel/userhub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

type LoginTracker interface {
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}

type AuthHandler struct {
	users   UserReader
	writer  UserWriter
	tracker LoginTracker
	jwt     *auth.Manager
	hasher  *security.Hasher
	log     *slog.Logger
	metrics *observability.Prom
}

func NewAuthHandler(users UserReader, writer UserWriter, tracker LoginTracker, jwt *auth.Manager, hasher *security.Hasher, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:   users,
		writer:  writer,
		tracker: tracker,
		jwt:     jwt,
		hasher:  hasher,
		log:     log,
	}
}

func (h *AuthHandler) WithMetrics(metrics *observability.Prom) *AuthHandler {
	h.metrics = metrics
	return h
}

type SignUpRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.FullName == "" || req.Email == "" || req.Password == "" {
		RespondBadRequest(ctx, "All fields are required", nil)
		return
	}

	if !security.ValidateEmail(req.Email) {
		RespondBadRequest(ctx, "Invalid email format", nil)
		return
	}

	if msg := security.ValidatePassword(req.Password); msg != "" {
		RespondBadRequest(ctx, msg, nil)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	// pre-check for a friendlier message; the store's uniqueness
	// constraint remains the authoritative guard against races
	if _, err := h.users.GetByEmail(cctx, email); err == nil {
		RespondConflict(ctx, "email_taken", "User already exists")
		return
	}

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	created, err := h.writer.Create(cctx, user.User{
		FullName:     req.FullName,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		Status:       user.StatusActive,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "User already exists")
			return
		}

		h.log.Error("signup create user", "err", err)
		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.Issue(created.ID)

	if err != nil {
		// The account exists; deliberately no rollback. The caller is
		// told to authenticate separately via login.
		h.log.Error("signup token issuance after create", "err", err, "user_id", created.ID)
		h.countAuth("signup", "error")
		RespondError(ctx, http.StatusInternalServerError, "token_issue_failed",
			"User created but authentication token generation failed. Please log in.", nil)
		return
	}

	h.countAuth("signup", "ok")

	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  created.Public(),
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		RespondBadRequest(ctx, "Email and password are required", nil)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	found, err := h.users.GetByEmail(cctx, email)

	if err != nil {
		// same message as a bad password so emails cannot be enumerated
		h.countAuth("login", "rejected")
		RespondUnAuthorized(ctx, "unauthorized", "Invalid credentials")
		return
	}

	if err := h.hasher.Verify(found.PasswordHash, req.Password); err != nil {
		h.countAuth("login", "rejected")
		RespondUnAuthorized(ctx, "unauthorized", "Invalid credentials")
		return
	}

	// status is only consulted after the password verified, so a wrong
	// password on a deactivated account still reads as bad credentials
	if !found.IsActive() {
		h.countAuth("login", "rejected")
		RespondForbidden(ctx, "Your account has been deactivated. Please contact admin.")
		return
	}

	if h.tracker != nil {
		now := time.Now().UTC()
		if err := h.tracker.SetLastLogin(cctx, found.ID, now); err != nil {
			h.log.Warn("record last login", "err", err, "user_id", found.ID)
		} else {
			found.LastLogin = &now
		}
	}

	token, err := h.jwt.Issue(found.ID)

	if err != nil {
		h.log.Error("login token issuance", "err", err, "user_id", found.ID)
		h.countAuth("login", "error")
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.countAuth("login", "ok")

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  found.Public(),
	})
}

// Me returns the principal the auth gate resolved for this request.
func (h *AuthHandler) Me(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": principal})
}

func (h *AuthHandler) countAuth(flow, result string) {
	if h.metrics != nil {
		h.metrics.AuthAttempts.WithLabelValues(flow, result).Inc()
	}
}

func contextWithTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
