package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("user-1", domain.RoleAgent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if exp.IsZero() {
		t.Fatalf("expected expiry")
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != domain.RoleAgent {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := NewTokenManager("other", 5).ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{Role: domain.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenManager("secret", 5).ParseToken(token); err == nil {
		t.Fatalf("HS512 token must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if ComparePassword(hash, "hunter22") != nil {
		t.Fatalf("expected match")
	}
	if ComparePassword(hash, "wrong") == nil {
		t.Fatalf("expected mismatch")
	}
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			derr := apperrors.ToDomainError(err)
			return c.Status(derr.HTTPStatus).SendString(derr.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(string(p.Actor.Role))
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, tm, store
}

func doRequest(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, store := newTestApp(t)
	agent := &domain.User{Username: "agent", Email: "agent@example.com", Role: domain.RoleAgent, Active: true}
	if err := store.Users().Create(context.Background(), agent); err != nil {
		t.Fatalf("create: %v", err)
	}
	token, _, _ := tm.GenerateToken(agent.ID, agent.Role)

	if status, _ := doRequest(t, app, "/me", ""); status != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d", status)
	}
	if status, _ := doRequest(t, app, "/me", "garbage"); status != http.StatusUnauthorized {
		t.Fatalf("bad token: got %d", status)
	}
	if status, body := doRequest(t, app, "/me", token); status != http.StatusOK || body != "AGENT" {
		t.Fatalf("valid token: got %d %q", status, body)
	}
	if status, body := doRequest(t, app, "/admin", token); status != http.StatusForbidden || body != apperrors.CodeAccessDenied {
		t.Fatalf("agent on admin route: got %d %q", status, body)
	}

	agent.Active = false
	if err := store.Users().Update(context.Background(), agent); err != nil {
		t.Fatalf("update: %v", err)
	}
	if status, _ := doRequest(t, app, "/me", token); status != http.StatusUnauthorized {
		t.Fatalf("inactive user: got %d", status)
	}

	ghost, _, _ := tm.GenerateToken("missing", domain.RoleAdmin)
	if status, _ := doRequest(t, app, "/me", ghost); status != http.StatusUnauthorized {
		t.Fatalf("unknown user: got %d", status)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if NeedsRehash(hash, 4) {
		t.Fatalf("same cost must not need rehash")
	}
	if !NeedsRehash(hash, 5) {
		t.Fatalf("different cost must need rehash")
	}
	if !NeedsRehash("not-a-hash", 4) {
		t.Fatalf("garbage must need rehash")
	}
}

func TestParseTokenRequiresIssuerAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	sign := func(claims *Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))

	noExpiry := sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: tokenIssuer}})
	if _, err := tm.ParseToken(noExpiry); err == nil {
		t.Fatalf("token without expiry must be rejected")
	}
	foreign := sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "someone-else", ExpiresAt: exp}})
	if _, err := tm.ParseToken(foreign); err == nil {
		t.Fatalf("token from another issuer must be rejected")
	}
	noSubject := sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, ExpiresAt: exp}})
	if _, err := tm.ParseToken(noSubject); err == nil {
		t.Fatalf("token without subject must be rejected")
	}
	expired := sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}})
	if _, err := tm.ParseToken(expired); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}
