package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrInvalidSubject       = errors.New("token subject is not a valid actor ID")
)

// AuthService defines the interface for authentication operations.
// This abstraction enables clean separation between HTTP handling
// and authentication logic, making both easier to test.
type AuthService interface {
	// ValidateRequest extracts and validates a JWT from the request.
	// It checks for the token in:
	//   1. Cookie named "auditrail_jwt" (browser clients)
	//   2. Authorization header with "Bearer" scheme (API clients)
	// Returns the validated claims, the raw token string, or an error.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// ActorFromClaims derives the acting identity from validated claims.
	// The token subject must be a UUID; the src claim selects the actor
	// source, defaulting to api.
	ActorFromClaims(claims *Claims) (models.Actor, error)
}

// authService implements AuthService.
type authService struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService with the given JWKS client and logger.
func NewAuthService(jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

// ValidateRequest extracts and validates a JWT from the request.
func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	var tokenString string
	var tokenSource string

	// Try cookie first (browser clients)
	if cookie, err := r.Cookie("auditrail_jwt"); err == nil {
		tokenString = cookie.Value
		tokenSource = "cookie"
	} else {
		// Fallback to Authorization header (API clients)
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.logger.Debug("No JWT found in request",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))
			return nil, "", ErrMissingAuthorization
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path),
				zap.String("header", authHeader))
			return nil, "", ErrInvalidAuthFormat
		}
		tokenString = parts[1]
		tokenSource = "header"
	}

	claims, err := s.jwksClient.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", tokenSource))
		return nil, "", err
	}

	return claims, tokenString, nil
}

// ActorFromClaims derives the acting identity from validated claims.
func (s *authService) ActorFromClaims(claims *Claims) (models.Actor, error) {
	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		s.logger.Warn("Token subject is not a UUID",
			zap.String("subject", claims.Subject))
		return models.Actor{}, ErrInvalidSubject
	}

	source := models.ActorSource(claims.Source)
	if source == "" {
		source = models.SourceAPI
	}
	if !source.IsValid() {
		s.logger.Warn("Token carries unknown actor source, defaulting to api",
			zap.String("source", claims.Source))
		source = models.SourceAPI
	}

	return models.Actor{ID: actorID, Source: source}, nil
}

// Ensure authService implements AuthService at compile time.
var _ AuthService = (*authService)(nil)
