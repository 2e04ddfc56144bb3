package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims(sub string, roles ...string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
}

// runAuth runs mw over a handler that records the authenticated user.
func runAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (string, []string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var user string
	var roles []string
	err := mw(func(c echo.Context) error {
		user = UserIDFromContext(c.Request().Context())
		roles = RolesFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)
	return user, roles, err
}

func expectUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, _, err := runAuth(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "")
	expectUnauthorized(t, err)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runAuth(t, mw, tt.header)
			expectUnauthorized(t, err)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, validClaims("dr-house", RolePhysician), testSigningKey)

	user, roles, err := runAuth(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "dr-house" {
		t.Errorf("expected user dr-house, got %q", user)
	}
	if !reflect.DeepEqual(roles, []string{RolePhysician}) {
		t.Errorf("expected [physician], got %v", roles)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := createTestToken(t, validClaims("dr-house"), []byte("another-key"))
	_, _, err := runAuth(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	expectUnauthorized(t, err)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := validClaims("dr-house")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	token := createTestToken(t, claims, testSigningKey)

	_, _, err := runAuth(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	expectUnauthorized(t, err)
}

func TestJWTMiddleware_MissingExpiry(t *testing.T) {
	claims := validClaims("dr-house")
	claims.ExpiresAt = nil
	token := createTestToken(t, claims, testSigningKey)

	_, _, err := runAuth(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	expectUnauthorized(t, err)
}

func TestJWTMiddleware_MissingSubject(t *testing.T) {
	token := createTestToken(t, validClaims(""), testSigningKey)
	_, _, err := runAuth(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	expectUnauthorized(t, err)
}

func TestJWTMiddleware_IssuerAndAudience(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "https://idp.example", Audience: "simedi"}
	mw := JWTMiddleware(cfg)

	good := validClaims("dr-house")
	good.Issuer = "https://idp.example"
	good.Audience = jwt.ClaimStrings{"simedi"}
	if _, _, err := runAuth(t, mw, "Bearer "+createTestToken(t, good, testSigningKey)); err != nil {
		t.Errorf("expected matching issuer and audience to pass, got %v", err)
	}

	wrongIss := good
	wrongIss.Issuer = "https://other.example"
	_, _, err := runAuth(t, mw, "Bearer "+createTestToken(t, wrongIss, testSigningKey))
	expectUnauthorized(t, err)

	wrongAud := good
	wrongAud.Audience = jwt.ClaimStrings{"billing"}
	_, _, err = runAuth(t, mw, "Bearer "+createTestToken(t, wrongAud, testSigningKey))
	expectUnauthorized(t, err)
}

func TestJWTMiddleware_JWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "k1",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	sign := func(kid string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("pharm-1", RolePharmacist))
		tok.Header["kid"] = kid
		s, err := tok.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	mw := JWTMiddleware(JWTConfig{JWKSURL: srv.URL})
	user, _, err := runAuth(t, mw, "Bearer "+sign("k1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "pharm-1" {
		t.Errorf("expected pharm-1, got %q", user)
	}

	_, _, err = runAuth(t, mw, "Bearer "+sign("unknown"))
	expectUnauthorized(t, err)

	// An HS256 token must not pass when RS256 is expected.
	_, _, err = runAuth(t, mw, "Bearer "+createTestToken(t, validClaims("x"), testSigningKey))
	expectUnauthorized(t, err)
}

func TestDevAuthMiddleware_NoToken(t *testing.T) {
	user, roles, err := runAuth(t, DevAuthMiddleware(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "dev-user" {
		t.Errorf("expected dev-user, got %q", user)
	}
	if !reflect.DeepEqual(roles, []string{RoleAdmin}) {
		t.Errorf("expected [admin], got %v", roles)
	}
}

func TestDevAuthMiddleware_UnverifiedToken(t *testing.T) {
	token := createTestToken(t, validClaims("nurse-1", RoleNurse), []byte("any key"))

	user, roles, err := runAuth(t, DevAuthMiddleware(), "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "nurse-1" {
		t.Errorf("expected nurse-1, got %q", user)
	}
	if !reflect.DeepEqual(roles, []string{RoleNurse}) {
		t.Errorf("expected [nurse], got %v", roles)
	}
}

func TestDevAuthMiddleware_GarbageTokenFallsBack(t *testing.T) {
	user, _, err := runAuth(t, DevAuthMiddleware(), "Bearer garbage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "dev-user" {
		t.Errorf("expected dev-user, got %q", user)
	}
}
