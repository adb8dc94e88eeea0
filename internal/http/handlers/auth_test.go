package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/rmorel/userhub/internal/auth"
	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/http/handlers"
	"github.com/rmorel/userhub/internal/repo/memory"
	"github.com/rmorel/userhub/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher() *security.Hasher {
	return security.NewHasher(bcrypt.MinCost)
}

func testJWT(t *testing.T) *auth.Manager {
	t.Helper()

	m, err := auth.NewManager(testJWTSecret, time.Hour)

	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	return m
}

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doRequest(router http.Handler, method, path, body string, headers ...[2]string) *httptest.ResponseRecorder {
	var reader io.Reader

	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, h := range headers {
		req.Header.Set(h[0], h[1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type authResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// seedUser registers an account straight into the store.
func seedUser(t *testing.T, store *memory.UsersRepo, email, password, role, status string) user.User {
	t.Helper()

	hash, err := testHasher().Hash(password)

	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	created, err := store.Create(context.Background(), user.User{
		FullName:     "Seeded User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	})

	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	return created
}

func newAuthHandler(t *testing.T, store *memory.UsersRepo) *handlers.AuthHandler {
	t.Helper()

	return handlers.NewAuthHandler(store, store, store, testJWT(t), testHasher(), testLogger())
}

func TestSignUpHandler(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		seed        func(t *testing.T, store *memory.UsersRepo)
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "success",
			body:       `{"fullName":"Sam Doe","email":"sam@example.com","password":"Abc123"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:        "missing_full_name",
			body:        `{"email":"sam@example.com","password":"Abc123"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "All fields are required",
		},
		{
			name:        "missing_password",
			body:        `{"fullName":"Sam Doe","email":"sam@example.com"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "All fields are required",
		},
		{
			name:        "invalid_email",
			body:        `{"fullName":"Sam Doe","email":"not-an-email","password":"Abc123"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid email format",
		},
		{
			name:        "weak_password_short",
			body:        `{"fullName":"Sam Doe","email":"sam@example.com","password":"Ab1"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Password must be at least 6 characters long",
		},
		{
			name:        "weak_password_no_uppercase",
			body:        `{"fullName":"Sam Doe","email":"sam@example.com","password":"abc123"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Password must contain at least one uppercase letter",
		},
		{
			name:        "weak_password_no_digit",
			body:        `{"fullName":"Sam Doe","email":"sam@example.com","password":"Abcdef"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Password must contain at least one number",
		},
		{
			name: "duplicate_email",
			body: `{"fullName":"Sam Doe","email":"sam@example.com","password":"Abc123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)
			},
			wantStatus:  http.StatusConflict,
			wantMessage: "User already exists",
		},
		{
			// lookups fold case, so SAM@ and sam@ are the same account
			name: "duplicate_email_different_case",
			body: `{"fullName":"Sam Doe","email":"SAM@Example.com","password":"Abc123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)
			},
			wantStatus:  http.StatusConflict,
			wantMessage: "User already exists",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewUsersRepo()

			if tt.seed != nil {
				tt.seed(t, store)
			}

			h := newAuthHandler(t, store)
			r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

			w := doRequest(r, http.MethodPost, "/api/auth/signup", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantMessage != "" && !strings.Contains(w.Body.String(), tt.wantMessage) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tt.wantMessage)
			}
		})
	}
}

func TestSignUpNormalizesEmailAndHidesPassword(t *testing.T) {
	store := memory.NewUsersRepo()
	h := newAuthHandler(t, store)
	r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

	w := doRequest(r, http.MethodPost, "/api/auth/signup",
		`{"fullName":"John Doe","email":"JOHN@Example.com","password":"Abc123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp authResponse
	mustReadJSON(t, w, &resp)

	if resp.Token == "" {
		t.Fatalf("expected a token in the signup response")
	}

	if resp.User.Email != "john@example.com" {
		t.Fatalf("got email %q, want lowercased john@example.com", resp.User.Email)
	}

	if resp.User.Role != user.RoleUser || resp.User.Status != user.StatusActive {
		t.Fatalf("new account got role=%q status=%q, want user/active", resp.User.Role, resp.User.Status)
	}

	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Fatalf("response body leaks a password field: %s", w.Body.String())
	}

	stored, err := store.GetByEmail(context.Background(), "john@example.com")

	if err != nil {
		t.Fatalf("stored user not found: %v", err)
	}

	if stored.PasswordHash == "" || stored.PasswordHash == "Abc123" {
		t.Fatalf("password was not hashed before storage")
	}
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		seed        func(t *testing.T, store *memory.UsersRepo)
		wantStatus  int
		wantMessage string
	}{
		{
			name: "success",
			body: `{"email":"sam@example.com","password":"Abc123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "mixed_case_email",
			body: `{"email":"SAM@Example.com","password":"Abc123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "missing_fields",
			body:        `{"email":"sam@example.com"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Email and password are required",
		},
		{
			name:        "unknown_email",
			body:        `{"email":"ghost@example.com","password":"Abc123"}`,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid credentials",
		},
		{
			name: "wrong_password",
			body: `{"email":"sam@example.com","password":"Wrong123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid credentials",
		},
		{
			name: "deactivated_account",
			body: `{"email":"sam@example.com","password":"Abc123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusInactive)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Your account has been deactivated. Please contact admin.",
		},
		{
			// a wrong password on a deactivated account must read as bad
			// credentials, not reveal the account state
			name: "deactivated_account_wrong_password",
			body: `{"email":"sam@example.com","password":"Wrong123"}`,
			seed: func(t *testing.T, store *memory.UsersRepo) {
				seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusInactive)
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid credentials",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewUsersRepo()

			if tt.seed != nil {
				tt.seed(t, store)
			}

			h := newAuthHandler(t, store)
			r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

			w := doRequest(r, http.MethodPost, "/api/auth/login", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantMessage != "" && !strings.Contains(w.Body.String(), tt.wantMessage) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tt.wantMessage)
			}
		})
	}
}

func TestLoginIndistinguishableRejections(t *testing.T) {
	store := memory.NewUsersRepo()
	seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)

	h := newAuthHandler(t, store)
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	unknown := doRequest(r, http.MethodPost, "/api/auth/login",
		`{"email":"ghost@example.com","password":"Abc123"}`)
	wrongPass := doRequest(r, http.MethodPost, "/api/auth/login",
		`{"email":"sam@example.com","password":"Wrong123"}`)

	if unknown.Code != wrongPass.Code {
		t.Fatalf("status differs: unknown=%d wrong=%d", unknown.Code, wrongPass.Code)
	}

	if unknown.Body.String() != wrongPass.Body.String() {
		t.Fatalf("bodies differ:\nunknown:   %s\nwrongpass: %s",
			unknown.Body.String(), wrongPass.Body.String())
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	store := memory.NewUsersRepo()
	seeded := seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)

	h := newAuthHandler(t, store)
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	w := doRequest(r, http.MethodPost, "/api/auth/login",
		`{"email":"sam@example.com","password":"Abc123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	stored, err := store.GetByID(context.Background(), seeded.ID)

	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if stored.LastLogin == nil {
		t.Fatalf("last login timestamp was not recorded")
	}
}

func TestLoginTokenVerifiesBackToUser(t *testing.T) {
	store := memory.NewUsersRepo()
	seeded := seedUser(t, store, "sam@example.com", "Abc123", user.RoleUser, user.StatusActive)

	jwtManager := testJWT(t)
	h := handlers.NewAuthHandler(store, store, store, jwtManager, testHasher(), testLogger())
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	w := doRequest(r, http.MethodPost, "/api/auth/login",
		`{"email":"sam@example.com","password":"Abc123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp authResponse
	mustReadJSON(t, w, &resp)

	subject, err := jwtManager.Verify(resp.Token)

	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}

	if subject != seeded.ID {
		t.Fatalf("token subject %q, want %q", subject, seeded.ID)
	}
}
