package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmorel/userhub/internal/cache"
	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/http/middlewares"
)

const listPageSize = 10

type AdminStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateStatus(ctx context.Context, id, status string) (user.User, error)
	List(ctx context.Context, offset, limit int) ([]user.User, error)
	Count(ctx context.Context) (int, error)
}

type AdminHandler struct {
	store AdminStore
	cache *cache.Cache
	log   *slog.Logger
}

func NewAdminHandler(store AdminStore, listCache *cache.Cache, log *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, cache: listCache, log: log}
}

// Page is a pointer so an absent param defaults rather than failing min.
type listUsersQuery struct {
	Page *int `form:"page" binding:"omitempty,min=1"`
}

type listPage struct {
	Users      []user.User `json:"users"`
	Pagination pagination  `json:"pagination"`
}

type pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalUsers  int  `json:"totalUsers"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// ListUsers returns one fixed-size page of accounts, newest first.
// Pages are cached briefly; every lifecycle write clears the cache.
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	var q listUsersQuery

	if err := ctx.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(ctx, "Invalid query parameters", parseBindError(err, &q))
		return
	}

	page := 1

	if q.Page != nil {
		page = *q.Page
	}

	key := fmt.Sprintf("admin:users:page:%d", page)

	if h.cache != nil {
		if cached, ok := h.cache.Get(key); ok {
			if body, ok := cached.(listPage); ok {
				ctx.JSON(http.StatusOK, body)
				return
			}
		}
	}

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	total, err := h.store.Count(cctx)

	if err != nil {
		h.log.Error("count users", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	users, err := h.store.List(cctx, (page-1)*listPageSize, listPageSize)

	if err != nil {
		h.log.Error("list users", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	sanitized := make([]user.User, 0, len(users))

	for _, u := range users {
		sanitized = append(sanitized, u.Public())
	}

	totalPages := (total + listPageSize - 1) / listPageSize

	body := listPage{
		Users: sanitized,
		Pagination: pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalUsers:  total,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}

	if h.cache != nil {
		h.cache.Set(key, body)
	}

	ctx.JSON(http.StatusOK, body)
}

func (h *AdminHandler) ActivateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	updated, err := h.store.UpdateStatus(cctx, id, user.StatusActive)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("activate user", "err", err, "target_id", id)
		RespondInternal(ctx, "Could not activate user")
		return
	}

	h.invalidateListing()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User activated successfully",
		"user":    updated.Public(),
	})
}

func (h *AdminHandler) DeactivateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	actorID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return
	}

	cctx, cancel := contextWithTimeout(ctx, 3*time.Second)

	defer cancel()

	if _, err := h.store.GetByID(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("load user for deactivation", "err", err, "target_id", id)
		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	// checked before any write so a refused self-deactivation leaves
	// the account untouched
	if actorID == id {
		RespondBadRequest(ctx, "Admin cannot deactivate their own account", nil)
		return
	}

	updated, err := h.store.UpdateStatus(cctx, id, user.StatusInactive)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("deactivate user", "err", err, "target_id", id)
		RespondInternal(ctx, "Could not deactivate user")
		return
	}

	h.invalidateListing()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User deactivated successfully",
		"user":    updated.Public(),
	})
}

func (h *AdminHandler) invalidateListing() {
	if h.cache != nil {
		h.cache.Clear()
	}
}
