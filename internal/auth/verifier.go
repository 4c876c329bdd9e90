// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package auth verifies the credential presented at connection time and
// resolves it to a principal identity. Verification is a pure function of
// the credential and the shared signing secret; the caller terminates the
// connection on any failure.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Typed verification failures. Each maps to a distinct error code on the
// wire before the connection is closed.
var (
	// ErrMissingToken indicates no credential was presented.
	ErrMissingToken = errors.New("auth: missing token")

	// ErrMalformedToken indicates the credential could not be parsed or
	// its signature did not verify.
	ErrMalformedToken = errors.New("auth: malformed or unverifiable token")

	// ErrExpiredToken indicates the credential verified but is expired.
	ErrExpiredToken = errors.New("auth: token expired")

	// ErrMissingSubject indicates the credential verified but carries no
	// subject claim. Verification success alone is not authentication.
	ErrMissingSubject = errors.New("auth: token has no subject")
)

// Claims are the JWT claims carried by a gateway credential.
type Claims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates connection credentials signed with a shared secret.
// It uses HMAC-SHA256 and rejects any other signing algorithm.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given signing secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: signing secret is required but was empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// VerifyCredential validates a raw credential string and returns the
// principal identifier from its subject claim.
//
// A scheme prefix ("Bearer <token>") is stripped case-insensitively before
// verification. Failures are one of the package's typed errors.
func (v *Verifier) VerifyCredential(credential string) (string, error) {
	token := stripScheme(credential)
	if token == "" {
		return "", ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrMalformedToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrMalformedToken
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}

	return claims.Subject, nil
}

// GenerateToken creates a signed credential for the given principal. Used
// by tests and the platform's token minting path.
func (v *Verifier) GenerateToken(principalID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, nil
}

// ExtractCredential pulls the raw credential from a handshake request.
// The Authorization header is preferred; the legacy inline "token" query
// parameter is the fallback for browser clients that cannot set headers on
// websocket upgrades.
func ExtractCredential(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		return authHeader
	}
	return r.URL.Query().Get("token")
}

// FailureReason maps a verification error to a stable metrics label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrMissingSubject):
		return "no_subject"
	default:
		return "invalid"
	}
}

// stripScheme removes a leading auth scheme token ("Bearer", case
// insensitive) from a credential string.
func stripScheme(credential string) string {
	credential = strings.TrimSpace(credential)
	parts := strings.SplitN(credential, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return credential
}
