package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendou/agenda-backend/internal/api/middleware"
	"github.com/agendou/agenda-backend/internal/models"
	"github.com/agendou/agenda-backend/internal/service"
)

type ClientHandler struct {
	clientService service.ClientService
}

func (h *ClientHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	var req models.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), companyID, userID, &service.ClientRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		logAPIError(c, "Client.Create", err, map[string]interface{}{"companyID": companyID})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toClientResponse(client))
}

func (h *ClientHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(c.Request.Context(), c.Param("id"), userID, c.Param("clientId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	clients, err := h.clientService.List(c.Request.Context(), c.Param("id"), userID, c.Query("search"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := make([]models.ClientResponse, 0, len(clients))
	for _, client := range clients {
		resp = append(resp, toClientResponse(client))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ClientHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), c.Param("id"), userID, c.Param("clientId"), &service.ClientRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		logAPIError(c, "Client.Update", err, map[string]interface{}{"clientID": c.Param("clientId")})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), c.Param("id"), userID, c.Param("clientId")); err != nil {
		logAPIError(c, "Client.Delete", err, map[string]interface{}{"clientID": c.Param("clientId")})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}
