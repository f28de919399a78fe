package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/transcriptgpa/internal/app/models/dto"
	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
	"github.com/yigit/transcriptgpa/internal/pkg/auth"
	"github.com/yigit/transcriptgpa/internal/pkg/logger"
)

// errorMapping ties a sentinel error to its HTTP response.
type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrSessionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Transcript session not found"},
	{apperrors.ErrRecordNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Course record not found"},
	{apperrors.ErrRequirementNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Prerequisite requirement not found"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{auth.ErrExpiredToken, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrInvalidRecord, http.StatusUnprocessableEntity, dto.ErrorCodeResourceInvalid, "Invalid course record"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrNoDocuments, http.StatusBadRequest, dto.ErrorCodeBadRequest, "No documents provided"},
	{apperrors.ErrUnsupportedFormat, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Unsupported format"},
	{apperrors.ErrUnsupportedDocument, http.StatusUnsupportedMediaType, dto.ErrorCodeUnsupportedDocument, "Unsupported document type"},
	{apperrors.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodeDocumentTooLarge, "Document too large"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		if msg := err.Error(); msg != m.target.Error() {
			detail = detail.WithDetails(msg)
		}
		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Str("method", c.Request.Method).Msg("Unhandled API error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical),
	))
}
