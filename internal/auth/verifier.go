package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier validates tokens issued by the hosted auth provider and extracts
// the subject (the user id). Identity itself is owned by the provider; this
// service only checks signatures.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a bearer token and returns the user id.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
