package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// createTestToken creates a JWT token for testing (unsigned, for dev mode).
func createTestToken(claims *Claims) string {
	// Create header
	header := map[string]string{
		"alg": "none",
		"typ": "JWT",
	}
	headerJSON, _ := json.Marshal(header)
	headerB64 := base64.RawURLEncoding.EncodeToString(headerJSON)

	// Create claims
	claimsJSON, _ := json.Marshal(claims)
	claimsB64 := base64.RawURLEncoding.EncodeToString(claimsJSON)

	// Return unsigned token (header.claims.)
	return headerB64 + "." + claimsB64 + "."
}

func TestNewJWKSClient_DevMode(t *testing.T) {
	config := &JWKSConfig{
		EnableVerification: false,
		JWKSEndpoints:      nil,
	}

	client, err := NewJWKSClient(config)
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestJWKSClient_ValidateToken_DevMode(t *testing.T) {
	config := &JWKSConfig{
		EnableVerification: false,
		JWKSEndpoints:      nil,
	}

	client, err := NewJWKSClient(config)
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	testClaims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "550e8400-e29b-41d4-a716-446655440000",
			Issuer:    "https://auth.example.com",
			Audience:  jwt.ClaimStrings{"auditrail"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Source: "console",
		Email:  "user@example.com",
		Roles:  []string{"admin", "user"},
	}

	token := createTestToken(testClaims)

	claims, err := client.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.Subject != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("expected Subject '550e8400-e29b-41d4-a716-446655440000', got %q", claims.Subject)
	}
	if claims.Source != "console" {
		t.Errorf("expected Source 'console', got %q", claims.Source)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("expected Email 'user@example.com', got %q", claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" {
		t.Errorf("expected Roles ['admin', 'user'], got %v", claims.Roles)
	}
}

func TestJWKSClient_ValidateToken_InvalidFormat(t *testing.T) {
	config := &JWKSConfig{
		EnableVerification: false,
		JWKSEndpoints:      nil,
	}

	client, err := NewJWKSClient(config)
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	_, err = client.ValidateToken("not-a-valid-token")
	if err == nil {
		t.Error("expected error for invalid token format")
	}
}

func TestJWKSClient_ValidateToken_EmptyToken(t *testing.T) {
	config := &JWKSConfig{
		EnableVerification: false,
		JWKSEndpoints:      nil,
	}

	client, err := NewJWKSClient(config)
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	_, err = client.ValidateToken("")
	if err == nil {
		t.Error("expected error for empty token")
	}
}

func TestJWKSClient_ValidateToken_MalformedBase64(t *testing.T) {
	config := &JWKSConfig{
		EnableVerification: false,
		JWKSEndpoints:      nil,
	}

	client, err := NewJWKSClient(config)
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}
	defer client.Close()

	// Token with invalid base64 in claims section
	_, err = client.ValidateToken("eyJhbGciOiJub25lIn0.!!!invalid!!!.")
	if err == nil {
		t.Error("expected error for malformed base64")
	}
}

func TestJWKSClient_Interface(t *testing.T) {
	// Verify that JWKSClient implements JWKSClientInterface
	config := &JWKSConfig{
		EnableVerification: false,
	}

	client, err := NewJWKSClient(config)
	if err != nil {
		t.Fatalf("NewJWKSClient failed: %v", err)
	}

	var _ JWKSClientInterface = client
}
