package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/pkg/config"
)

// Access tokens are HS256 only; any other alg is rejected at parse time.
var signingMethod = jwt.SigningMethodHS256

var (
	errMissingSecret = errors.New("jwt secret is required")
	errMissingUser   = errors.New("user id is required")
)

func checkConfig(cfg config.JWTConfig, minting bool) error {
	switch {
	case cfg.Secret == "":
		return errMissingSecret
	case minting && cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	case minting && cfg.ExpirationMinutes <= 0:
		return errors.New("jwt expiration minutes must be positive")
	}
	return nil
}

// MintAccessToken signs a token for payload that expires
// cfg.ExpirationMinutes after now. A blank JTI is replaced with a UUID.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg, true); err != nil {
		return "", err
	}
	if payload.UserID == uuid.Nil {
		return "", errMissingUser
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then requires a
// user id and a known role.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg, false); err != nil {
		return nil, err
	}

	claims := &AccessTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}

	switch {
	case claims.UserID == uuid.Nil:
		return nil, fmt.Errorf("token missing user_id")
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("token carries invalid role %q", claims.Role)
	}
	return claims, nil
}
