package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/config"
)

func testService(t *testing.T, enabled bool, accessKey string) *Service {
	t.Helper()

	cfg := config.AuthConfig{
		Enabled:    enabled,
		SessionTTL: time.Hour,
	}
	if accessKey != "" {
		hash, err := NewKeyHasher().HashKey(accessKey)
		if err != nil {
			t.Fatalf("HashKey: %v", err)
		}
		cfg.AccessKeyHash = hash
	}

	return NewService(cfg, zap.NewNop())
}

func TestHashAndVerifyKey(t *testing.T) {
	hasher := NewKeyHasher()

	hash, err := hasher.HashKey("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}

	ok, err := hasher.VerifyKey("correct-horse-battery", hash)
	if err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	if !ok {
		t.Error("expected matching key to verify")
	}

	ok, err = hasher.VerifyKey("wrong-key", hash)
	if err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	if ok {
		t.Error("expected mismatched key to fail verification")
	}
}

func TestVerifyKeyRejectsMalformedHash(t *testing.T) {
	hasher := NewKeyHasher()

	if _, err := hasher.VerifyKey("anything", "not-an-argon2-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestCreateSessionRoundTrip(t *testing.T) {
	svc := testService(t, true, "let-me-in")

	token, expiresAt, err := svc.CreateSession("let-me-in")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expected future expiry, got %v", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Issuer != "joycore-link" {
		t.Errorf("issuer = %q, want joycore-link", claims.Issuer)
	}
	if claims.Subject != "ui-session" {
		t.Errorf("subject = %q, want ui-session", claims.Subject)
	}
}

func TestCreateSessionRejectsWrongKey(t *testing.T) {
	svc := testService(t, true, "let-me-in")

	if _, _, err := svc.CreateSession("open-sesame"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
}

func TestCreateSessionWhenDisabled(t *testing.T) {
	svc := testService(t, false, "")

	if _, _, err := svc.CreateSession("anything"); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestCreateSessionWithoutConfiguredHash(t *testing.T) {
	svc := testService(t, true, "")

	if _, _, err := svc.CreateSession("anything"); err == nil {
		t.Error("expected error when no access key hash is configured")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	handler := NewJWTHandler("test-secret-with-enough-length-0000", -time.Minute)

	token, _, err := handler.GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	if _, err := handler.ValidateSessionToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenSignedWithDifferentSecretRejected(t *testing.T) {
	issuer := NewJWTHandler("secret-one-11111111111111111111111", time.Hour)
	verifier := NewJWTHandler("secret-two-22222222222222222222222", time.Hour)

	token, _, err := issuer.GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	if _, err := verifier.ValidateSessionToken(token); err == nil {
		t.Error("expected token with wrong signature to be rejected")
	}
}

func middlewareRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", svc.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestMiddlewarePassesThroughWhenDisabled(t *testing.T) {
	router := middlewareRouter(testService(t, false, ""))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	router := middlewareRouter(testService(t, true, "let-me-in"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareRejectsBadScheme(t *testing.T) {
	router := middlewareRouter(testService(t, true, "let-me-in"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareAcceptsSessionToken(t *testing.T) {
	svc := testService(t, true, "let-me-in")
	router := middlewareRouter(svc)

	token, _, err := svc.CreateSession("let-me-in")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
