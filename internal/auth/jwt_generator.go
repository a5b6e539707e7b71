package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/golang-jwt/jwt/v5"
)

// UserResolver looks up the user a token is issued for
type UserResolver interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// UserClaimsAccessGenerate generates OAuth2 access tokens carrying the owning user's id and role
type UserClaimsAccessGenerate struct {
	SignedKey    []byte
	SignedMethod jwt.SigningMethod
	Users        UserResolver
}

// NewUserClaimsAccessGenerate creates a new access token generator
func NewUserClaimsAccessGenerate(key []byte, method jwt.SigningMethod, users UserResolver) *UserClaimsAccessGenerate {
	return &UserClaimsAccessGenerate{
		SignedKey:    key,
		SignedMethod: method,
		Users:        users,
	}
}

// Token is called by the OAuth2 manager to generate access tokens.
// For client_credentials the user comes from the client owner.
func (g *UserClaimsAccessGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	userID := data.UserID
	if userID == "" {
		userID = data.Client.GetUserID()
	}
	if userID == "" {
		return "", "", fmt.Errorf("cannot generate token: no user ID available")
	}

	// The role is read from storage so a client cannot outlive a demotion of its owner
	role, err := g.userRole(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch user role: %w", err)
	}

	createdAt := data.TokenInfo.GetAccessCreateAt()
	claims := userClaims(userID, role, createdAt, createdAt.Add(data.TokenInfo.GetAccessExpiresIn()))
	claims["aud"] = data.Client.GetID()
	if scope := data.TokenInfo.GetScope(); scope != "" {
		claims["scope"] = scope
	}

	access, err := jwt.NewWithClaims(g.SignedMethod, claims).SignedString(g.SignedKey)
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if isGenRefresh {
		refreshClaims := jwt.MapClaims{
			"id":  data.TokenInfo.GetAccess(),
			"exp": data.TokenInfo.GetRefreshCreateAt().Add(data.TokenInfo.GetRefreshExpiresIn()).Unix(),
		}
		refresh, err = jwt.NewWithClaims(g.SignedMethod, refreshClaims).SignedString(g.SignedKey)
		if err != nil {
			return "", "", err
		}
	}

	return access, refresh, nil
}

func (g *UserClaimsAccessGenerate) userRole(ctx context.Context, userIDStr string) (string, error) {
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid user ID format: %w", err)
	}

	user, err := g.Users.GetUserByID(ctx, uint(userID))
	if err != nil {
		return "", err
	}
	return string(models.NormalizeRole(string(user.Role))), nil
}
