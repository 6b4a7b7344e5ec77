// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"workshop/config"
	"workshop/internal/domain/entity"
	"workshop/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// opaqueSecretBytes is the entropy of refresh and verification secrets.
const opaqueSecretBytes = 32

// ErrTokenInvalid is the single error returned for any access-token failure.
// Malformed, expired and wrongly signed tokens are indistinguishable to the
// caller so verification never acts as an oracle.
var ErrTokenInvalid = errors.New("invalid token")

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret        []byte
	accessTTL     time.Duration // customer and tech tokens
	privilegedTTL time.Duration // admin, shop and manager tokens
	refreshTTL    time.Duration
}

type accessClaims struct {
	Role   string `json:"role"`
	ShopID string `json:"shop_id,omitempty"`
	Typ    string `json:"typ"`
	jwt.RegisteredClaims
}

// NewJWTService is the constructor for jwtService. It refuses an empty
// signing secret: the service must fail closed rather than sign with a
// guessable default.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg == nil || cfg.SecretKey.Access == "" {
		return nil, errors.New("jwt signing secret must be provided")
	}

	authCfg := cfg.Auth
	if authCfg == nil {
		return nil, errors.New("auth configuration must be provided")
	}

	return &jwtService{
		secret:        []byte(cfg.SecretKey.Access),
		accessTTL:     authCfg.AccessTTL,
		privilegedTTL: authCfg.PrivilegedAccessTTL,
		refreshTTL:    authCfg.RefreshTTL,
	}, nil
}

// IssueAccessToken signs a short-lived HS256 token carrying the principal
// projection. Privileged roles get the shorter TTL.
func (s *jwtService) IssueAccessToken(ref entity.PrincipalRef) (string, error) {
	ttl := s.accessTTL
	if ref.Role.Elevated() {
		ttl = s.privilegedTTL
	}

	now := time.Now()
	claims := accessClaims{
		Role: ref.Role.String(),
		Typ:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ref.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if ref.ShopID != nil {
		claims.ShopID = ref.ShopID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}

	return signed, nil
}

// VerifyAccessToken checks signature and expiry and maps every failure to
// ErrTokenInvalid.
func (s *jwtService) VerifyAccessToken(tokenString string) (*service.AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || claims.Typ != "access" {
		return nil, ErrTokenInvalid
	}

	principalID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	role := entity.Role(claims.Role)
	if !role.IsValid() {
		return nil, ErrTokenInvalid
	}

	out := &service.AccessClaims{
		PrincipalID: principalID,
		Role:        role,
	}
	if claims.ShopID != "" {
		shopID, err := uuid.Parse(claims.ShopID)
		if err != nil {
			return nil, ErrTokenInvalid
		}
		out.ShopID = &shopID
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}

// NewOpaqueSecret returns a URL-safe random secret for refresh and
// verification tokens.
func (s *jwtService) NewOpaqueSecret() (string, error) {
	buf := make([]byte, opaqueSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the hex SHA-256 of an opaque secret. The raw secret has
// enough entropy that the hash lookup itself is the timing-safe comparison.
func (s *jwtService) HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}

// RefreshTokenDuration returns the configured duration for refresh tokens.
func (s *jwtService) RefreshTokenDuration() time.Duration {
	return s.refreshTTL
}
