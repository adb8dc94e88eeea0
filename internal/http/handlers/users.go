package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/http/middlewares"
	"github.com/rmorel/userhub/internal/security"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type UserHandler struct {
	store  ProfileStore
	hasher *security.Hasher
	log    *slog.Logger
}

func NewUserHandler(store ProfileStore, hasher *security.Hasher, log *slog.Logger) *UserHandler {
	return &UserHandler{store: store, hasher: hasher, log: log}
}

type UpdateProfileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *UserHandler) GetProfile(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return
	}

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	// re-read instead of echoing the gate's principal so the payload
	// reflects writes from a concurrent session
	found, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("load profile", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": found.Public()})
}

func (h *UserHandler) UpdateProfile(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return
	}

	var req UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.FullName == "" || req.Email == "" {
		RespondBadRequest(ctx, "Full name and email are required", nil)
		return
	}

	if !security.ValidateEmail(req.Email) {
		RespondBadRequest(ctx, "Invalid email format", nil)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	if other, err := h.store.GetByEmail(cctx, email); err == nil && other.ID != id {
		RespondConflict(ctx, "email_taken", "Email already exists")
		return
	}

	updated, err := h.store.Update(cctx, user.User{
		ID:       id,
		FullName: req.FullName,
		Email:    email,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already exists")
			return
		}

		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("update profile", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not update profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    updated.Public(),
	})
}

func (h *UserHandler) ChangePassword(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		RespondBadRequest(ctx, "Old password and new password are required", nil)
		return
	}

	if msg := security.ValidatePassword(req.NewPassword); msg != "" {
		RespondBadRequest(ctx, msg, nil)
		return
	}

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	// the gate's principal is sanitized, so the stored hash has to be
	// fetched again here
	found, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("load user for password change", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := h.hasher.Verify(found.PasswordHash, req.OldPassword); err != nil {
		RespondBadRequest(ctx, "Old password is incorrect", nil)
		return
	}

	hash, err := h.hasher.Hash(req.NewPassword)

	if err != nil {
		h.log.Error("hash new password", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := h.store.UpdatePassword(cctx, id, hash); err != nil {
		h.log.Error("persist new password", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not change password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
