package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/manage"
	"github.com/go-oauth2/oauth2/v4/server"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OAuthService issues access tokens to API clients through the client_credentials grant
type OAuthService struct {
	server *server.Server
	tokens *GormTokenStore
}

func NewOAuthService(db *gorm.DB, users UserResolver, jwtSecret string, ttl time.Duration) *OAuthService {
	manager := manage.NewDefaultManager()
	manager.SetClientTokenCfg(&manage.Config{AccessTokenExp: ttl})

	// Access tokens carry the same claims as login tokens so one middleware serves both
	manager.MapAccessGenerate(NewUserClaimsAccessGenerate([]byte(jwtSecret), jwt.SigningMethodHS256, users))

	tokenStore := NewGormTokenStore(db)
	manager.MustTokenStorage(tokenStore, nil)
	manager.MapClientStorage(NewGormClientStore(db))

	srv := server.NewDefaultServer(manager)
	srv.SetAllowGetAccessRequest(false)
	srv.SetClientInfoHandler(server.ClientFormHandler)
	srv.SetAllowedGrantType(oauth2.ClientCredentials)
	srv.SetInternalErrorHandler(func(err error) *errors.Response {
		log.WithError(err).Error("OAuth2 internal error")
		return nil
	})

	return &OAuthService{
		server: srv,
		tokens: tokenStore,
	}
}

func (o *OAuthService) GetServer() *server.Server {
	return o.server
}

// Tokens returns the persistent token store
func (o *OAuthService) Tokens() *GormTokenStore {
	return o.tokens
}

// HandleToken handles the token endpoint
// @Summary Token endpoint
// @Description Obtain an access token for an API client using the client_credentials grant
// @Tags oauth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Must be client_credentials"
// @Param client_id formData string true "Client ID"
// @Param client_secret formData string true "Client secret"
// @Param scope formData string false "Requested scope"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	if err := o.server.HandleTokenRequest(c.Writer, c.Request); err != nil {
		log.WithError(err).Warn("Failed to write token response")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
