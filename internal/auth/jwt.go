package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenWrongType = errors.New("wrong token type")
)

// Claims carries the authenticated user and the token's role. Type is
// "access" or "refresh"; refresh tokens are only accepted by the refresh
// endpoint.
type Claims struct {
	UserID int64  `json:"uid"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenIssuer signs and verifies HS256 tokens for one deployment.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IssuePair mints an access/refresh pair for userID.
func (ti *TokenIssuer) IssuePair(userID int64) (TokenPair, error) {
	access, err := ti.sign(userID, tokenTypeAccess, ti.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := ti.sign(userID, tokenTypeRefresh, ti.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (ti *TokenIssuer) sign(userID int64, typ string, ttl time.Duration) (string, error) {
	now := ti.now()
	claims := &Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(ti.secret)
}

// VerifyAccess parses an access token and returns the user ID it vouches for.
func (ti *TokenIssuer) VerifyAccess(tokenStr string) (int64, error) {
	return ti.verify(tokenStr, tokenTypeAccess)
}

// VerifyRefresh parses a refresh token and returns the user ID it vouches for.
func (ti *TokenIssuer) VerifyRefresh(tokenStr string) (int64, error) {
	return ti.verify(tokenStr, tokenTypeRefresh)
}

func (ti *TokenIssuer) verify(tokenStr, wantType string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return ti.now() }))
	if err != nil {
		return 0, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrTokenInvalid
	}
	if claims.Type != wantType {
		return 0, ErrTokenWrongType
	}
	return claims.UserID, nil
}
