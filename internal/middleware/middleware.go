package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// Context keys set by Authenticate
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextUser     = "currentUser"
)

// UserIDHeader carries the raw user id in the header scheme
const UserIDHeader = "User-Id"

// Supported identity schemes
const (
	SchemeToken  = "token"
	SchemeHeader = "header"
)

// IdentityResolver resolves an identity claim to a stored user
type IdentityResolver interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Authenticate extracts the identity claim for the configured scheme, resolves it against
// the store and attaches the user to the context. The stored role is authoritative.
func Authenticate(users IdentityResolver, scheme string, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint
		var err error
		if scheme == SchemeHeader {
			userID, err = userIDFromHeader(c)
		} else {
			userID, err = userIDFromBearer(c, jwtSecret)
		}
		if err != nil {
			respondUnauthorized(c, scheme, err.Error())
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if errors.Is(err, services.ErrUserNotFound) {
			respondUnauthorized(c, scheme, "Invalid user")
			return
		}
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Authentication lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				models.NewAPIError(models.ErrInternalServer, "Authentication failed"))
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserRole, string(user.Role))
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by Authenticate
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

func userIDFromHeader(c *gin.Context) (uint, error) {
	raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if raw == "" {
		return 0, errors.New("Authentication required")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("Invalid user")
	}
	return uint(id), nil
}

func userIDFromBearer(c *gin.Context, jwtSecret []byte) (uint, error) {
	// RFC 6750: Extract Bearer token from Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return 0, errors.New("Missing Authorization header. A valid Bearer token is required.")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return 0, errors.New("Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return 0, errors.New("Bearer token is empty")
	}

	claims, err := parseAndValidateJWT(tokenString, jwtSecret)
	if err != nil {
		return 0, err
	}
	userID, err := extractUserID(claims)
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user identifier: cannot be zero")
	}
	return userID, nil
}

func respondUnauthorized(c *gin.Context, scheme, description string) {
	details := map[string]interface{}{}
	if scheme != SchemeHeader {
		details["error"] = models.ErrInvalidToken
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		models.NewAPIError(models.ErrUnauthorized, description, details))
}

// parseJWTToken validates and parses a JWT token using HMAC signing method
// Returns the claims if valid, error otherwise
func parseJWTToken(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC to prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	return claims, nil
}

// parseAndValidateJWT parses the JWT and performs strict validation
func parseAndValidateJWT(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	claims, err := parseJWTToken(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Tokens without an expiry are not accepted
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp == nil {
		return nil, fmt.Errorf("token missing required 'exp' claim")
	}
	if exp.Before(now) {
		return nil, fmt.Errorf("token has expired")
	}

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return nil, fmt.Errorf("invalid nbf claim: %w", err)
	}
	if nbf != nil && nbf.After(now) {
		return nil, fmt.Errorf("token not yet valid")
	}

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}
	if iat != nil && iat.After(now) {
		return nil, fmt.Errorf("token issued in the future")
	}

	return claims, nil
}

// extractUserID extracts and validates the user ID from the "uid" claim
func extractUserID(claims jwt.MapClaims) (uint, error) {
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		parsedID, err := strconv.ParseUint(uid, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid uid claim format: must be a numeric string, got: %s", uid)
		}
		return uint(parsedID), nil
	}

	// JSON numbers are parsed as float64
	if uid, ok := claims["uid"].(float64); ok {
		if uid <= 0 {
			return 0, fmt.Errorf("invalid uid claim: must be positive, got: %f", uid)
		}
		return uint(uid), nil
	}

	return 0, fmt.Errorf("token missing required 'uid' claim. This token is not valid for this API")
}
