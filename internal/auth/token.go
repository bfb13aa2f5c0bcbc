package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TokenManager validates bearer tokens issued by the identity provider.
// GenerateToken exists for operators and tests; production tokens are minted
// elsewhere with the same secret.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager builds a new manager. An empty issuer disables the iss check.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Claims describes JWT payload.
type Claims struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{Name: c.Name, Email: c.Email, Role: c.Role}
}

// GenerateToken signs a token for actor valid for ttl.
func (tm *TokenManager) GenerateToken(actor domain.Actor, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Name:  actor.Name,
		Email: actor.Email,
		Role:  actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Email,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Email == "" {
		return nil, errors.New("token has no email claim")
	}
	if !claims.Role.IsValid() {
		return nil, errors.New("token has unknown role")
	}
	return claims, nil
}
