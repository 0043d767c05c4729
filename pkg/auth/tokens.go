package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"resenhas/pkg/apperr"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is what login returns.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Tokens issues and verifies HS256 access/refresh tokens.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
}

// NewTokens builds a token issuer. store may be nil, in which case refresh
// tokens are only checked by signature and expiry.
func NewTokens(secret string, accessTTL, refreshTTL time.Duration, store RefreshStore) *Tokens {
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
	}
}

// IssuePair signs a fresh access/refresh pair for userID.
func (t *Tokens) IssuePair(ctx context.Context, userID uint) (Pair, error) {
	access, err := t.sign(userID, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	jti := uuid.NewString()
	refresh, err := t.signWithID(userID, tokenTypeRefresh, t.refreshTTL, jti)
	if err != nil {
		return Pair{}, err
	}
	if t.store != nil {
		if err := t.store.Save(ctx, jti, userID, t.refreshTTL); err != nil {
			return Pair{}, err
		}
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (t *Tokens) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := t.parse(refresh, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return "", err
	}
	if t.store != nil {
		owner, ok, err := t.store.Lookup(ctx, claims.ID)
		if err != nil {
			return "", err
		}
		if !ok || owner != userID {
			return "", apperr.ErrUnauthorized
		}
	}
	return t.sign(userID, tokenTypeAccess, t.accessTTL)
}

// Revoke forgets a refresh token. Invalid tokens are ignored.
func (t *Tokens) Revoke(ctx context.Context, refresh string) error {
	claims, err := t.parse(refresh, tokenTypeRefresh)
	if err != nil {
		return nil
	}
	if t.store == nil {
		return nil
	}
	return t.store.Delete(ctx, claims.ID)
}

// ParseAccess validates an access token and returns the user id.
func (t *Tokens) ParseAccess(token string) (uint, error) {
	claims, err := t.parse(token, tokenTypeAccess)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

func (t *Tokens) sign(userID uint, typ string, ttl time.Duration) (string, error) {
	return t.signWithID(userID, typ, ttl, uuid.NewString())
}

func (t *Tokens) signWithID(userID uint, typ string, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token, typ string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, apperr.ErrUnauthorized
	}
	if claims.TokenType != typ {
		return nil, apperr.ErrUnauthorized
	}
	return claims, nil
}

func subjectID(claims *Claims) (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Join(apperr.ErrUnauthorized, err)
	}
	return uint(id), nil
}
