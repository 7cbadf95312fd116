package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const adminTokenType = "admin"

var ErrInvalidToken = errors.New("invalid admin token")

// AdminToken is a signed bearer token for the admin API.
type AdminToken struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 admin tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, issuer string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be > 0")
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject. A non-positive ttl uses the configured one.
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (AdminToken, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return AdminToken{}, errors.New("token subject required")
	}
	if ttl <= 0 {
		ttl = tm.ttl
	}
	now := tm.now()
	exp := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"iss": tm.issuer,
		"typ": adminTokenType,
		"jti": uuid.NewString(),
	})
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return AdminToken{}, fmt.Errorf("sign token: %w", err)
	}
	return AdminToken{Token: signed, Subject: subject, ExpiresAt: exp}, nil
}

// Verify checks the signature, expiry, issuer and token type and returns the
// subject.
func (tm *TokenManager) Verify(token string) (string, error) {
	if tm == nil {
		return "", ErrInvalidToken
	}
	if token == "" {
		return "", fmt.Errorf("%w: token required", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims["typ"] != adminTokenType {
		return "", fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return subject, nil
}
