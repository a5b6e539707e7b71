package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type userForm struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Password string `form:"password"`
	Role     string `form:"role"`
}

func (h *Handler) ShowLogin(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/users")
		return
	}
	render(c, http.StatusOK, "login.html", nil)
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "login.html", gin.H{"Error": "Invalid form data"})
		return
	}

	user, err := h.users.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		status, message := describe(err)
		render(c, status, "login.html", gin.H{"Error": message, "Email": form.Email})
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionUserID, user.ID)
	if err := sess.Save(); err != nil {
		log.WithError(err).Error("Failed to save session")
		render(c, http.StatusInternalServerError, "login.html", gin.H{"Error": "Could not start session"})
		return
	}
	c.Redirect(http.StatusFound, "/users")
}

func (h *Handler) ShowSignup(c *gin.Context) {
	render(c, http.StatusOK, "signup.html", gin.H{"Form": userForm{}})
}

func (h *Handler) Signup(c *gin.Context) {
	var form userForm
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "signup.html", gin.H{"Error": "Invalid form data", "Form": form})
		return
	}

	// Self-service signups never choose their role
	_, err := h.users.Register(c.Request.Context(), services.UserInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		status, message := describe(err)
		form.Password = ""
		render(c, status, "signup.html", gin.H{"Error": message, "Form": form})
		return
	}
	redirectWithFlash(c, "success", "Account created. Please log in.", "/login")
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) Profile(c *gin.Context) {
	render(c, http.StatusOK, "profile.html", gin.H{"User": currentUser(c)})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		status, message := describe(err)
		render(c, status, "users.html", gin.H{"Error": message})
		return
	}
	render(c, http.StatusOK, "users.html", gin.H{
		"Users":     users,
		"CanDelete": h.canDelete(currentUser(c)),
	})
}

func (h *Handler) ShowNewUser(c *gin.Context) {
	render(c, http.StatusOK, "user_form.html", gin.H{
		"Title":  "Add user",
		"Action": "/users/new",
		"Form":   userForm{Role: string(models.RoleUser)},
		"New":    true,
	})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var form userForm
	_ = c.ShouldBind(&form)

	user, err := h.users.CreateUser(c.Request.Context(), services.UserInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
	})
	if err != nil {
		status, message := describe(err)
		form.Password = ""
		render(c, status, "user_form.html", gin.H{
			"Title":  "Add user",
			"Action": "/users/new",
			"Form":   form,
			"New":    true,
			"Error":  message,
		})
		return
	}
	redirectWithFlash(c, "success", "User "+user.Name+" created", "/users")
}

func (h *Handler) ShowEditUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, "user_form.html", gin.H{
		"Title":  "Edit user",
		"Action": "/users/" + strconv.FormatUint(uint64(user.ID), 10) + "/edit",
		"Form":   userForm{Name: user.Name, Email: user.Email, Role: string(user.Role)},
	})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var form userForm
	_ = c.ShouldBind(&form)

	_, err := h.users.UpdateUser(c.Request.Context(), id, services.UserUpdate{
		Name:     &form.Name,
		Email:    &form.Email,
		Password: &form.Password,
		Role:     &form.Role,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			redirectWithFlash(c, "error", "User not found", "/users")
			return
		}
		status, message := describe(err)
		form.Password = ""
		render(c, status, "user_form.html", gin.H{
			"Title":  "Edit user",
			"Action": c.Request.URL.Path,
			"Form":   form,
			"Error":  message,
		})
		return
	}
	redirectWithFlash(c, "success", "User updated", "/users")
}

func (h *Handler) ConfirmDelete(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, "confirm_delete.html", gin.H{"User": user})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id, currentUser(c)); err != nil {
		_, message := describe(err)
		redirectWithFlash(c, "error", message, "/users")
		return
	}

	// Deleting yourself ends the session
	if me := currentUser(c); me != nil && me.ID == id {
		sess := sessions.Default(c)
		sess.Clear()
		_ = sess.Save()
		c.Redirect(http.StatusFound, "/login")
		return
	}
	redirectWithFlash(c, "success", "User deleted", "/users")
}

func (h *Handler) canDelete(u *models.User) bool {
	return u != nil && (h.users.DeletePolicy() == services.DeleteAnyAuthenticated || u.IsAdmin())
}

func (h *Handler) loadUser(c *gin.Context) (*models.User, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	user, err := h.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		_, message := describe(err)
		redirectWithFlash(c, "error", message, "/users")
		return nil, false
	}
	return user, true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		redirectWithFlash(c, "error", "Invalid user ID", "/users")
		return 0, false
	}
	return uint(id), true
}

// describe turns a service error into a status and a message fit for the page
func describe(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusBadRequest, "User with this email already exists"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "Please log in"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Only administrators can delete users"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	default:
		log.WithError(err).Error("Frontend request failed")
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}
