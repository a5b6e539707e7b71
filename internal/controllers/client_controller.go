package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-user-manager/internal/middleware"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-gonic/gin"
)

type createClientRequest struct {
	Name   string `json:"name" binding:"required"`
	Domain string `json:"domain"`
	Scopes string `json:"scopes"`
}

// ClientController manages the caller's OAuth2 API clients
type ClientController struct {
	clientService services.ClientService
}

func NewClientController(clientService services.ClientService) *ClientController {
	return &ClientController{clientService: clientService}
}

// CreateClient godoc
// @Summary Create OAuth2 client
// @Description Create an API client acting on behalf of the authenticated user
// @Tags OAuth2 Clients
// @Accept json
// @Produce json
// @Param client body createClientRequest true "Client details"
// @Success 201 {object} map[string]interface{} "Client created with client_id and client_secret"
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /api/clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	owner, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, services.ErrUnauthenticated, "create client")
		return
	}

	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, "Client name is required")
		return
	}

	client, secret, err := cc.clientService.CreateClient(c.Request.Context(), owner.ID, services.ClientInput{
		Name:   req.Name,
		Domain: req.Domain,
		Scopes: req.Scopes,
	})
	if err != nil {
		respondError(c, err, "create client")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"client_id":     client.ID,
		"client_secret": secret, // Returned only once
		"name":          client.Name,
		"scopes":        client.Scopes,
	})
}

// ListClients godoc
// @Summary List OAuth2 clients
// @Description Get all OAuth2 clients owned by the authenticated user
// @Tags OAuth2 Clients
// @Produce json
// @Success 200 {array} models.OAuthClient
// @Failure 401 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /api/clients [get]
func (cc *ClientController) ListClients(c *gin.Context) {
	owner, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, services.ErrUnauthenticated, "list clients")
		return
	}

	clients, err := cc.clientService.GetClientsByUserID(c.Request.Context(), owner.ID)
	if err != nil {
		respondError(c, err, "retrieve clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}

// DeleteClient godoc
// @Summary Delete OAuth2 client
// @Description Delete an OAuth2 client owned by the authenticated user
// @Tags OAuth2 Clients
// @Param id path string true "Client ID"
// @Success 204 "Client deleted successfully"
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/clients/{id} [delete]
func (cc *ClientController) DeleteClient(c *gin.Context) {
	owner, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, services.ErrUnauthenticated, "delete client")
		return
	}

	if err := cc.clientService.DeleteClient(c.Request.Context(), c.Param("id"), owner.ID); err != nil {
		respondError(c, err, "delete client")
		return
	}
	c.Status(http.StatusNoContent)
}
