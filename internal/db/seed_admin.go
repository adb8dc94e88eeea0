package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rmorel/userhub/internal/config"
	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/security"
)

// AdminStore is the slice of the account store the bootstrap needs.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	UpdateRole(ctx context.Context, id, role string) (user.User, error)
	UpdateStatus(ctx context.Context, id, status string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// EnsureAdminUser is the idempotent admin bootstrap, run once at process
// start with the store as an explicit dependency. It is skipped when no
// admin credentials are configured; if the configured email already belongs
// to an admin it is a no-op; if it belongs to an ordinary account that
// account is promoted, its password reset and its status forced active.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher *security.Hasher, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Info("admin bootstrap skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	existing, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, herr := hasher.Hash(cfg.AdminPassword)

	if herr != nil {
		return herr
	}

	if err == nil {
		if existing.IsAdmin() {
			log.Info("admin user already exists", "email", cfg.AdminEmail)
			return nil
		}

		return promote(ctx, store, existing, hash, cfg, log)
	}

	_, err = store.Create(ctx, user.User{
		FullName:     cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Status:       user.StatusActive,
	})

	if err != nil {
		return err
	}

	log.Info("admin user initialized", "email", cfg.AdminEmail)

	return nil
}

func promote(ctx context.Context, store AdminStore, existing user.User, hash string, cfg config.Config, log *slog.Logger) error {
	if _, err := store.UpdateRole(ctx, existing.ID, user.RoleAdmin); err != nil {
		return err
	}

	if err := store.UpdatePassword(ctx, existing.ID, hash); err != nil {
		return err
	}

	if _, err := store.UpdateStatus(ctx, existing.ID, user.StatusActive); err != nil {
		return err
	}

	existing.FullName = cfg.AdminName

	if _, err := store.Update(ctx, existing); err != nil {
		return err
	}

	log.Info("existing user promoted to admin", "email", cfg.AdminEmail)

	return nil
}
