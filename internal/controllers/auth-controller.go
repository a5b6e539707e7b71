package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-user-manager/internal/auth"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthController handles registration and login
type AuthController struct {
	userService services.UserService
	tokens      *auth.TokenIssuer
}

// NewAuthController creates an AuthController. When tokens is nil login returns no access token.
func NewAuthController(userService services.UserService, tokens *auth.TokenIssuer) *AuthController {
	return &AuthController{
		userService: userService,
		tokens:      tokens,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Create an account. Unknown roles default to "user".
// @Tags auth
// @Accept json
// @Produce json
// @Param user body registerRequest true "Registration details"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Router /api/auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Name, email and password are required")
		return
	}

	user, err := ac.userService.Register(c.Request.Context(), services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err, "register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login godoc
// @Summary Log in
// @Description Verify credentials and return the user. With token authentication a signed access token is included.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Router /api/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Email and password are required")
		return
	}

	user, err := ac.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "authenticate user")
		return
	}

	response := gin.H{
		"message": "Login successful",
		"user":    user,
	}
	if ac.tokens != nil {
		token, _, err := ac.tokens.Issue(user)
		if err != nil {
			respondError(c, err, "generate token")
			return
		}
		response["access_token"] = token
		response["token_type"] = "Bearer"
		response["expires_in"] = int64(ac.tokens.TTL().Seconds())
	}

	c.JSON(http.StatusOK, response)
}
