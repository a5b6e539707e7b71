package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/franciscosanchezn/gin-user-manager/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-jwt-secret-key-32-characters"

func setupOAuth(t *testing.T) (*OAuthService, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	svc := NewOAuthService(db, services.NewUserService(db, services.DeleteAdminOnly), testSecret, time.Hour)
	require.NotNil(t, svc)
	require.NotNil(t, svc.GetServer())
	return svc, db
}

func createClient(t *testing.T, db *gorm.DB, owner *models.User) (*models.OAuthClient, string) {
	t.Helper()
	client, secret, err := services.NewClientService(db).CreateClient(context.Background(), owner.ID, services.ClientInput{Name: "ci", Scopes: "read write"})
	require.NoError(t, err)
	return client, secret
}

func tokenRouter(o *OAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/oauth/token", o.HandleToken)
	return router
}

func postToken(router *gin.Engine, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestClientCredentialsFlow(t *testing.T) {
	o, db := setupOAuth(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com", "pw", models.RoleManager)
	client, secret := createClient(t, db, owner)

	w := postToken(tokenRouter(o), "grant_type=client_credentials&client_id="+client.ID+"&client_secret="+secret+"&scope=read")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Bearer", response["token_type"])

	accessToken, ok := response["access_token"].(string)
	require.True(t, ok)
	claims := parseClaims(t, accessToken)
	assert.Equal(t, "manager", claims["role"])
	assert.Equal(t, client.GetUserID(), claims["uid"])
	assert.Equal(t, client.ID, claims["aud"])

	stored, err := o.Tokens().GetByAccess(context.Background(), accessToken)
	require.NoError(t, err)
	assert.Equal(t, client.ID, stored.GetClientID())
}

func TestClientCredentialsInvalidSecret(t *testing.T) {
	o, db := setupOAuth(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com", "pw", models.RoleUser)
	client, _ := createClient(t, db, owner)

	w := postToken(tokenRouter(o), "grant_type=client_credentials&client_id="+client.ID+"&client_secret=wrong_secret")
	assert.True(t, w.Code >= 400)
	assert.NotContains(t, w.Body.String(), "access_token")
}

func TestUnsupportedGrantType(t *testing.T) {
	o, _ := setupOAuth(t)
	w := postToken(tokenRouter(o), "grant_type=password&username=a&password=b&client_id=x&client_secret=y")
	assert.True(t, w.Code >= 400)
}

func TestAccessTokenGenerationRequiresOwner(t *testing.T) {
	o, db := setupOAuth(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com", "pw", models.RoleAdmin)
	client, secret := createClient(t, db, owner)

	tokenInfo, err := o.GetServer().Manager.GenerateAccessToken(context.Background(), oauth2.ClientCredentials, &oauth2.TokenGenerateRequest{
		ClientID:     client.ID,
		ClientSecret: secret,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", parseClaims(t, tokenInfo.GetAccess())["role"])

	require.NoError(t, db.Delete(&models.User{}, owner.ID).Error)
	_, err = o.GetServer().Manager.GenerateAccessToken(context.Background(), oauth2.ClientCredentials, &oauth2.TokenGenerateRequest{
		ClientID:     client.ID,
		ClientSecret: secret,
	})
	assert.Error(t, err)
}

func TestClientStoreIntegration(t *testing.T) {
	_, db := setupOAuth(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com", "pw", models.RoleUser)
	client, _ := createClient(t, db, owner)

	retrieved, err := NewGormClientStore(db).GetByID(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.ID, retrieved.GetID())

	_, err = NewGormClientStore(db).GetByID(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPurgeExpired(t *testing.T) {
	_, db := setupOAuth(t)
	store := NewGormTokenStore(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.OAuthToken{ClientID: "c", AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&models.OAuthToken{ClientID: "c", AccessToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	removed, err := store.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.GetByAccess(ctx, "fresh")
	assert.NoError(t, err)
	_, err = store.GetByCode(ctx, "anything")
	assert.Error(t, err)
}
