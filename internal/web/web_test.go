package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/franciscosanchezn/gin-user-manager/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// browser replays the session cookie between requests
type browser struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, policy services.DeletePolicy) (*browser, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(t)

	router := gin.New()
	Register(router, services.NewUserService(db, policy), "web-test-secret", false)
	return &browser{t: t, router: router, cookies: map[string]*http.Cookie{}}, db
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) login(email, password string) {
	w := b.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusFound, w.Code)
	require.Equal(b.t, "/users", w.Header().Get("Location"))
}

func editPath(u *models.User) string {
	return "/users/" + strconv.FormatUint(uint64(u.ID), 10) + "/edit"
}

func deletePath(u *models.User) string {
	return "/users/" + strconv.FormatUint(uint64(u.ID), 10) + "/delete"
}

func TestPagesRequireLogin(t *testing.T) {
	b, _ := newBrowser(t, services.DeleteAdminOnly)

	for _, path := range []string{"/users", "/users/new", "/profile", "/users/1/edit"} {
		w := b.get(path)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}

	w := b.get("/login")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="password"`)
}

func TestSignupThenLogin(t *testing.T) {
	b, db := newBrowser(t, services.DeleteAdminOnly)

	w := b.post("/signup", url.Values{"name": {"Web User"}, "email": {"web@example.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Flash shows once
	w = b.get("/login")
	assert.Contains(t, w.Body.String(), "Account created")
	w = b.get("/login")
	assert.NotContains(t, w.Body.String(), "Account created")

	var stored models.User
	require.NoError(t, db.Where("email = ?", "web@example.com").First(&stored).Error)
	assert.Equal(t, models.RoleUser, stored.Role)

	b.login("web@example.com", "pw")
	w = b.get("/profile")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Web User")

	w = b.post("/logout", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusFound, b.get("/profile").Code)
}

func TestSignupErrors(t *testing.T) {
	b, db := newBrowser(t, services.DeleteAdminOnly)
	testutil.CreateUser(t, db, "Taken", "taken@example.com", "pw", models.RoleUser)

	w := b.post("/signup", url.Values{"name": {"Dup"}, "email": {"taken@example.com"}, "password": {"pw"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = b.post("/signup", url.Values{"name": {"No Password"}, "email": {"nopw@example.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "nopw@example.com")
	assert.Contains(t, w.Body.String(), "name, email and password are required")

	w = b.post("/signup", url.Values{"name": {"Bad"}, "email": {"not-an-email"}, "password": {"pw"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email address")

	var count int64
	db.Model(&models.User{}).Where("email = ?", "not-an-email").Count(&count)
	assert.Zero(t, count)
}

func TestLoginFailure(t *testing.T) {
	b, db := newBrowser(t, services.DeleteAdminOnly)
	testutil.CreateUser(t, db, "User", "user@example.com", "pw", models.RoleUser)

	w := b.post("/login", url.Values{"email": {"user@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
	assert.Equal(t, http.StatusFound, b.get("/users").Code)
}

func TestUserManagementPages(t *testing.T) {
	b, db := newBrowser(t, services.DeleteAdminOnly)
	testutil.CreateUser(t, db, "Admin", "admin@example.com", "pw", models.RoleAdmin)
	b.login("admin@example.com", "pw")

	w := b.post("/users/new", url.Values{"name": {"Created"}, "email": {"created@example.com"}, "password": {"pw"}, "role": {"superuser"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = b.get("/users")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User Created created")
	assert.Contains(t, w.Body.String(), "created@example.com")

	var created models.User
	require.NoError(t, db.Where("email = ?", "created@example.com").First(&created).Error)
	assert.Equal(t, models.RoleUser, created.Role)

	w = b.get(editPath(&created))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Created"`)

	w = b.post(editPath(&created), url.Values{"name": {"Renamed"}, "email": {"admin@example.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = b.post(editPath(&created), url.Values{"name": {"Renamed"}, "role": {"superuser"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid role")
	assert.NotContains(t, w.Body.String(), "are required")

	w = b.post(editPath(&created), url.Values{"name": {"Renamed"}, "email": {"created@example.com"}, "role": {"manager"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.NoError(t, db.First(&created, created.ID).Error)
	assert.Equal(t, "Renamed", created.Name)
	assert.Equal(t, models.RoleManager, created.Role)
	assert.True(t, created.CheckPassword("pw"), "blank password leaves it unchanged")

	w = b.get(deletePath(&created))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed")

	w = b.post(deletePath(&created), nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, b.get("/users").Body.String(), "User deleted")

	var count int64
	db.Model(&models.User{}).Where("id = ?", created.ID).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteFollowsPolicy(t *testing.T) {
	t.Run("non-admin is refused", func(t *testing.T) {
		b, db := newBrowser(t, services.DeleteAdminOnly)
		testutil.CreateUser(t, db, "Plain", "plain@example.com", "pw", models.RoleUser)
		target := testutil.CreateUser(t, db, "Target", "target@example.com", "pw", models.RoleUser)
		b.login("plain@example.com", "pw")

		assert.NotContains(t, b.get("/users").Body.String(), deletePath(target))

		w := b.post(deletePath(target), nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, b.get("/users").Body.String(), "Only administrators can delete users")

		var count int64
		db.Model(&models.User{}).Where("id = ?", target.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("deleting yourself ends the session", func(t *testing.T) {
		b, db := newBrowser(t, services.DeleteAnyAuthenticated)
		me := testutil.CreateUser(t, db, "Me", "me@example.com", "pw", models.RoleUser)
		b.login("me@example.com", "pw")

		w := b.post(deletePath(me), nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Equal(t, http.StatusFound, b.get("/profile").Code)
	})
}

func TestMissingUserRedirectsWithFlash(t *testing.T) {
	b, db := newBrowser(t, services.DeleteAdminOnly)
	testutil.CreateUser(t, db, "Admin", "admin@example.com", "pw", models.RoleAdmin)
	b.login("admin@example.com", "pw")

	w := b.get("/users/999/edit")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, b.get("/users").Body.String(), "User not found")

	w = b.get("/users/abc/edit")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, b.get("/users").Body.String(), "Invalid user ID")
}
