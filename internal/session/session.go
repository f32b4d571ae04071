// Package session carries the caller's identity token through to upstream services.
// The token is never verified here; the upstream services own authentication.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const Anonymous = "anonymous"

var ErrMalformedToken = errors.New("malformed identity token")

type Session struct {
	token   string
	subject string
}

// New builds a session from a bearer token. An empty token yields an anonymous session.
// JWTs have their subject read (unverified) so bookings can be grouped per user.
// Opaque tokens and JWTs without a subject are keyed by a digest of the token.
func New(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{subject: Anonymous}, nil
	}
	s := Session{token: token, subject: tokenSubject(token)}
	if strings.Count(token, ".") != 2 {
		return s, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		s.subject = sub
	}
	return s, nil
}

// FromAuthorization parses an "Authorization: Bearer ..." header value.
func FromAuthorization(header string) (Session, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return New("")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Session{}, fmt.Errorf("%w: expected bearer scheme", ErrMalformedToken)
	}
	return New(token)
}

func tokenSubject(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:12])
}

func (s Session) Token() string { return s.token }

func (s Session) Subject() string {
	if s.subject == "" {
		return Anonymous
	}
	return s.subject
}

func (s Session) Anonymous() bool { return s.token == "" }

func (s Session) AuthorizationHeader() string {
	if s.token == "" {
		return ""
	}
	return "Bearer " + s.token
}
