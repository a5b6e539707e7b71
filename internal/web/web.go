// Package web serves the browser frontend: server-rendered list and form pages
// driving the same user service as the JSON API.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	sessionName   = "um_session"
	sessionUserID = "user_id"
	contextUser   = "CurrentUser"
)

// Handler renders the frontend pages
type Handler struct {
	users services.UserService
}

// Register mounts the frontend routes on r with a cookie session signed by sessionSecret
func Register(r *gin.Engine, users services.UserService, sessionSecret string, secureCookies bool) {
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"roles": func() []models.Role { return models.Roles },
	}).ParseFS(templatesFS, "templates/*.html")))

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	h := &Handler{users: users}

	site := r.Group("/", sessions.Sessions(sessionName, store), h.injectUser())
	site.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/users") })
	site.GET("/login", h.ShowLogin)
	site.POST("/login", h.Login)
	site.GET("/signup", h.ShowSignup)
	site.POST("/signup", h.Signup)
	site.POST("/logout", h.Logout)

	private := site.Group("/", requireLogin())
	private.GET("/profile", h.Profile)
	private.GET("/users", h.ListUsers)
	private.GET("/users/new", h.ShowNewUser)
	private.POST("/users/new", h.CreateUser)
	private.GET("/users/:id/edit", h.ShowEditUser)
	private.POST("/users/:id/edit", h.UpdateUser)
	private.GET("/users/:id/delete", h.ConfirmDelete)
	private.POST("/users/:id/delete", h.DeleteUser)
}

// injectUser loads the session user, if any, into the context
func (h *Handler) injectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		if uid, ok := sess.Get(sessionUserID).(uint); ok && uid > 0 {
			user, err := h.users.GetUserByID(c.Request.Context(), uid)
			if err == nil {
				c.Set(contextUser, user)
			} else {
				// The account is gone; drop the stale session
				sess.Delete(sessionUserID)
				_ = sess.Save()
			}
		}
		c.Next()
	}
}

func requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// render wraps c.HTML, passing the current user and pending flash messages to every page
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u := currentUser(c); u != nil {
		data["CurrentUser"] = u
	}

	sess := sessions.Default(c)
	if flashes := sess.Flashes("success"); len(flashes) > 0 {
		data["Success"] = flashes[0]
	}
	if flashes := sess.Flashes("error"); len(flashes) > 0 {
		data["Error"] = flashes[0]
	}
	_ = sess.Save()

	c.HTML(status, tmpl, data)
}

// redirectWithFlash stores a one-shot message for the next page
func redirectWithFlash(c *gin.Context, kind, message, location string) {
	sess := sessions.Default(c)
	sess.AddFlash(message, kind)
	_ = sess.Save()
	c.Redirect(http.StatusFound, location)
}
