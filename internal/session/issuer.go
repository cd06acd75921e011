// Package session emite y valida el bearer token de sesión (JWT HS256).
// Claims mínimos: identidad, email y flag de admin.
package session

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// MinSecretLen: un secreto HMAC corto invalida toda la autenticación.
const MinSecretLen = 32

// DefaultTTL de la sesión.
const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("session: invalid token")
	ErrExpiredToken = errors.New("session: expired token")
)

// Claims son los claims propios del token de sesión.
type Claims struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// Issuer firma y valida tokens de sesión con un secreto simétrico provisto
// al arranque. Secreto ausente o corto es fatal (ConfigurationError).
type Issuer struct {
	Iss    string
	TTL    time.Duration
	secret []byte
}

func NewIssuer(iss, secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("session: secret must be at least %d bytes", MinSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if iss == "" {
		iss = "triplog"
	}
	return &Issuer{Iss: iss, TTL: ttl, secret: []byte(secret)}, nil
}

// Sign emite un token firmado con los claims dados.
func (i *Issuer) Sign(c Claims) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.TTL)

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":   i.Iss,
		"sub":   c.UserID,
		"email": c.Email,
		"admin": c.IsAdmin,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	})
	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify valida firma, issuer y expiración, y devuelve los claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	tok, err := jwtv5.Parse(token, func(t *jwtv5.Token) (any, error) {
		return i.secret, nil
	},
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	admin, _ := claims["admin"].(bool)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{UserID: sub, Email: email, IsAdmin: admin}, nil
}
