package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-user-manager/internal/middleware"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-gonic/gin"
)

// UserController handles HTTP requests related to users
type UserController interface {
	// ListUsers returns every user
	ListUsers(c *gin.Context)
	// GetUser returns one user by id
	GetUser(c *gin.Context)
	// GetProfile returns the authenticated user
	GetProfile(c *gin.Context)
	// CreateUser creates a user
	CreateUser(c *gin.Context)
	// UpdateUser applies a partial update
	UpdateUser(c *gin.Context)
	// DeleteUser deletes a user
	DeleteUser(c *gin.Context)
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type userController struct {
	service services.UserService
}

// NewUserController creates a new instance of UserController
func NewUserController(service services.UserService) UserController {
	return &userController{service: service}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Failure 500 {object} models.APIError
// @Router /api/users [get]
func (uc *userController) ListUsers(c *gin.Context) {
	users, err := uc.service.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /api/users/{id} [get]
func (uc *userController) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := uc.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetProfile godoc
// @Summary Current user
// @Description Return the user resolved from the request identity
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/me [get]
func (uc *userController) GetProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, services.ErrUnauthenticated, "fetch profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create a user
// @Description Admin-facing creation; validated like registration
// @Tags users
// @Accept json
// @Produce json
// @Param user body createUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Router /api/users [post]
func (uc *userController) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Name, email and password are required")
		return
	}

	user, err := uc.service.CreateUser(c.Request.Context(), services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err, "create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUser godoc
// @Summary Update a user
// @Description Only the supplied fields change
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body updateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Router /api/users/{id} [put]
func (uc *userController) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Invalid user fields")
		return
	}

	user, err := uc.service.UpdateUser(c.Request.Context(), id, services.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Requires an identity; admin-only unless the delete policy is "authenticated"
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/{id} [delete]
func (uc *userController) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	caller, _ := middleware.CurrentUser(c)
	if err := uc.service.DeleteUser(c.Request.Context(), id, caller); err != nil {
		respondError(c, err, "delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
