package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendou/agenda-backend/internal/api/middleware"
	"github.com/agendou/agenda-backend/internal/models"
	"github.com/agendou/agenda-backend/internal/service"
)

type CompanyHandler struct {
	companyService service.CompanyService
}

func (h *CompanyHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company, err := h.companyService.Create(c.Request.Context(), userID, toCompanyServiceRequest(&req))
	if err != nil {
		logAPIError(c, "Company.Create", err, map[string]interface{}{"name": req.Name})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCompanyResponse(company))
}

func (h *CompanyHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	company, err := h.companyService.GetByID(c.Request.Context(), companyID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCompanyResponse(company))
}

func (h *CompanyHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	var req models.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company, err := h.companyService.Update(c.Request.Context(), companyID, userID, toCompanyServiceRequest(&req))
	if err != nil {
		logAPIError(c, "Company.Update", err, map[string]interface{}{"companyID": companyID})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCompanyResponse(company))
}

func toCompanyServiceRequest(req *models.CompanyRequest) *service.CompanyRequest {
	return &service.CompanyRequest{
		Name:                   req.Name,
		Slug:                   req.Slug,
		Phone:                  req.Phone,
		Segment:                req.Segment,
		City:                   req.City,
		State:                  req.State,
		Timezone:               req.Timezone,
		DefaultIntervalMinutes: req.DefaultIntervalMinutes,
	}
}
