// Package testhelpers provides utilities for testing auditrail-engine components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
)

// GenerateTestJWT creates a test JWT token for use when verification is disabled.
// The token has a valid structure but no signature (alg: none).
// The subject should be an actor UUID; src selects the actor source and may
// be empty to get the default.
func GenerateTestJWT(sub, src, email string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s"`, sub)
	if src != "" {
		payload += fmt.Sprintf(`,"src":"%s"`, src)
	}
	if email != "" {
		payload += fmt.Sprintf(`,"email":"%s"`, email)
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub, src, email string) string {
	return "Bearer " + GenerateTestJWT(sub, src, email)
}
