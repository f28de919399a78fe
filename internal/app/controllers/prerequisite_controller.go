package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/transcriptgpa/internal/app/models/dto"
	"github.com/yigit/transcriptgpa/internal/app/services"
)

// PrerequisiteController serves the prerequisite catalog
type PrerequisiteController struct {
	prerequisiteService *services.PrerequisiteService
}

// NewPrerequisiteController creates a new PrerequisiteController
func NewPrerequisiteController(prerequisiteService *services.PrerequisiteService) *PrerequisiteController {
	return &PrerequisiteController{prerequisiteService: prerequisiteService}
}

// ListPrerequisites returns every requirement in display order
func (c *PrerequisiteController) ListPrerequisites(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(c.prerequisiteService.List(), "Prerequisites retrieved successfully"))
}
