package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendou/agenda-backend/internal/api/middleware"
	"github.com/agendou/agenda-backend/internal/models"
	"github.com/agendou/agenda-backend/internal/service"
)

type StaffHandler struct {
	staffService service.StaffService
}

func (h *StaffHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	var req models.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, tempPassword, err := h.staffService.CreateStaff(c.Request.Context(), companyID, userID, &service.CreateStaffRequest{
		Email:        req.Email,
		FullName:     req.FullName,
		RoleFunction: req.RoleFunction,
	})
	if err != nil {
		logAPIError(c, "Staff.Create", err, map[string]interface{}{
			"companyID": companyID,
			"email":     req.Email,
		})
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateStaffResponse{
		Member:       toMemberResponse(member),
		TempPassword: tempPassword,
	})
}

func (h *StaffHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	members, err := h.staffService.List(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := make([]models.MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StaffHandler) SetActive(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.staffService.SetActive(c.Request.Context(), c.Param("id"), userID, c.Param("userId"), req.Active); err != nil {
		logAPIError(c, "Staff.SetActive", err, map[string]interface{}{
			"targetUserID": c.Param("userId"),
			"active":       req.Active,
		})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "membership updated"})
}
