package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/repo/memory"
)

func mustCreate(t *testing.T, r *memory.UsersRepo, email string) user.User {
	t.Helper()

	created, err := r.Create(context.Background(), user.User{
		FullName:     "Sam Doe",
		Email:        email,
		PasswordHash: "hash",
		Role:         user.RoleUser,
		Status:       user.StatusActive,
	})

	if err != nil {
		t.Fatalf("Create(%q) returned error: %v", email, err)
	}

	return created
}

func TestCreateAssignsIDAndLowercasesEmail(t *testing.T) {
	r := memory.NewUsersRepo()

	created := mustCreate(t, r, "SAM@Example.com")

	if created.ID == "" {
		t.Fatalf("Create did not assign an id")
	}

	if created.Email != "sam@example.com" {
		t.Fatalf("got email %q, want lowercased sam@example.com", created.Email)
	}

	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", created)
	}
}

func TestCreateRejectsDuplicateEmailAnyCase(t *testing.T) {
	r := memory.NewUsersRepo()

	mustCreate(t, r, "sam@example.com")

	_, err := r.Create(context.Background(), user.User{Email: "SAM@EXAMPLE.COM"})

	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got error %v, want ErrEmailTaken", err)
	}
}

func TestGetByEmailIsCaseInsensitive(t *testing.T) {
	r := memory.NewUsersRepo()

	created := mustCreate(t, r, "sam@example.com")

	found, err := r.GetByEmail(context.Background(), "Sam@Example.COM")

	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}

	if found.ID != created.ID {
		t.Fatalf("got id %q, want %q", found.ID, created.ID)
	}
}

func TestGetByIDMissing(t *testing.T) {
	r := memory.NewUsersRepo()

	if _, err := r.GetByID(context.Background(), "ghost"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("got error %v, want ErrNotFound", err)
	}
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	r := memory.NewUsersRepo()

	a := mustCreate(t, r, "a@example.com")
	mustCreate(t, r, "b@example.com")

	a.Email = "b@example.com"

	if _, err := r.Update(context.Background(), a); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got error %v, want ErrEmailTaken", err)
	}
}

func TestUpdateKeepsOwnEmail(t *testing.T) {
	r := memory.NewUsersRepo()

	a := mustCreate(t, r, "a@example.com")

	a.FullName = "Renamed"

	updated, err := r.Update(context.Background(), a)

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.FullName != "Renamed" || updated.Email != "a@example.com" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestUpdateStatusAndRole(t *testing.T) {
	r := memory.NewUsersRepo()

	a := mustCreate(t, r, "a@example.com")

	if _, err := r.UpdateStatus(context.Background(), a.ID, user.StatusInactive); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if _, err := r.UpdateRole(context.Background(), a.ID, user.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole returned error: %v", err)
	}

	stored, err := r.GetByID(context.Background(), a.ID)

	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if stored.Status != user.StatusInactive || stored.Role != user.RoleAdmin {
		t.Fatalf("got status=%q role=%q", stored.Status, stored.Role)
	}

	if _, err := r.UpdateStatus(context.Background(), "ghost", user.StatusActive); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("got error %v, want ErrNotFound", err)
	}
}

func TestSetLastLogin(t *testing.T) {
	r := memory.NewUsersRepo()

	a := mustCreate(t, r, "a@example.com")
	at := time.Now().UTC()

	if err := r.SetLastLogin(context.Background(), a.ID, at); err != nil {
		t.Fatalf("SetLastLogin returned error: %v", err)
	}

	stored, err := r.GetByID(context.Background(), a.ID)

	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if stored.LastLogin == nil || !stored.LastLogin.Equal(at) {
		t.Fatalf("last login not recorded: %+v", stored.LastLogin)
	}
}

func TestListNewestFirstWithOffsetAndLimit(t *testing.T) {
	r := memory.NewUsersRepo()

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}

	for _, e := range emails {
		mustCreate(t, r, e)
		time.Sleep(time.Millisecond)
	}

	page, err := r.List(context.Background(), 0, 2)

	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(page) != 2 {
		t.Fatalf("got %d users, want 2", len(page))
	}

	if page[0].Email != "d@example.com" || page[1].Email != "c@example.com" {
		t.Fatalf("listing not newest first: %q, %q", page[0].Email, page[1].Email)
	}

	rest, err := r.List(context.Background(), 2, 10)

	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(rest) != 2 {
		t.Fatalf("got %d users past the offset, want 2", len(rest))
	}

	beyond, err := r.List(context.Background(), 10, 10)

	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(beyond) != 0 {
		t.Fatalf("expected an empty page past the end, got %d", len(beyond))
	}

	total, err := r.Count(context.Background())

	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}

	if total != len(emails) {
		t.Fatalf("got count %d, want %d", total, len(emails))
	}
}
