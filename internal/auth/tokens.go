package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs time-limited HS256 access tokens for users
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and lifetime
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a signed token for the user and its expiry time
func (i *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, errors.New("cannot issue token: user has no id")
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)
	claims := userClaims(strconv.FormatUint(uint64(user.ID), 10), string(user.Role), issuedAt, expiresAt)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// userClaims builds the claim set shared by login tokens and OAuth2 access tokens
func userClaims(uid, role string, issuedAt, expiresAt time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"uid":  uid,
		"role": role,
		"iat":  issuedAt.Unix(),
		"nbf":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	}
}
