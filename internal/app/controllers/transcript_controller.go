package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yigit/transcriptgpa/internal/app/models/dto"
	"github.com/yigit/transcriptgpa/internal/app/services"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/structured"
	"github.com/yigit/transcriptgpa/internal/middleware"
	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
	"github.com/yigit/transcriptgpa/internal/pkg/helpers"
)

// Multipart field names accepted for uploads.
const (
	uploadField      = "files[]"
	uploadFieldPlain = "files"
	pastedSourceName = "pasted.txt"
)

// TranscriptController handles transcript session operations
type TranscriptController struct {
	transcriptService services.TranscriptService
}

// NewTranscriptController creates a new TranscriptController
func NewTranscriptController(transcriptService services.TranscriptService) *TranscriptController {
	return &TranscriptController{transcriptService: transcriptService}
}

// CreateSession handles transcript uploads. Accepts multipart files or a JSON body
// with pasted text.
func (c *TranscriptController) CreateSession(ctx *gin.Context) {
	var (
		docs []services.Document
		err  error
	)
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		docs, err = readUploads(ctx)
		if err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
	} else {
		var req dto.CreateTranscriptTextRequest
		if !middleware.BindJSON(ctx, &req) {
			return
		}
		name := strings.TrimSpace(req.SourceFile)
		if name == "" {
			name = pastedSourceName
		}
		docs = []services.Document{{Name: name, Data: []byte(req.Text)}}
	}

	resp, err := c.transcriptService.CreateSession(ctx, docs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(resp, "Transcript session created successfully"))
}

func readUploads(ctx *gin.Context) ([]services.Document, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, apperrors.NewBadRequestError("invalid multipart form: " + err.Error())
	}
	files := form.File[uploadField]
	if len(files) == 0 {
		files = form.File[uploadFieldPlain]
	}
	if len(files) == 0 {
		return nil, apperrors.ErrNoDocuments
	}

	docs := make([]services.Document, 0, len(files))
	for _, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, fmt.Errorf("error reading upload %s: %w", fh.Filename, err)
		}
		docs = append(docs, services.Document{Name: fh.Filename, Data: data})
	}
	return docs, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GetSession returns the course table of a session
func (c *TranscriptController) GetSession(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	resp, err := c.transcriptService.GetSession(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Transcript session retrieved successfully"))
}

// GetSources returns the per-document extraction reports
func (c *TranscriptController) GetSources(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	resp, err := c.transcriptService.GetSources(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Sources retrieved successfully"))
}

// AddRecord appends a hand-entered course record
func (c *TranscriptController) AddRecord(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	var req dto.RecordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.transcriptService.AddRecord(ctx, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(resp, "Course record added successfully"))
}

// UpdateRecord corrects a course record
func (c *TranscriptController) UpdateRecord(ctx *gin.Context) {
	id, index, ok := sessionAndIndex(ctx)
	if !ok {
		return
	}
	var req dto.RecordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.transcriptService.UpdateRecord(ctx, id, index, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Course record updated successfully"))
}

// DeleteRecord removes a course record
func (c *TranscriptController) DeleteRecord(ctx *gin.Context) {
	id, index, ok := sessionAndIndex(ctx)
	if !ok {
		return
	}
	resp, err := c.transcriptService.DeleteRecord(ctx, id, index)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Course record deleted successfully"))
}

// ConfirmMatch links a course record to a prerequisite
func (c *TranscriptController) ConfirmMatch(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	var req dto.ConfirmMatchRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.transcriptService.ConfirmMatch(ctx, id, ctx.Param("requirementId"), *req.RecordIndex)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Prerequisite match confirmed"))
}

// ClearMatch removes the record linked to a prerequisite
func (c *TranscriptController) ClearMatch(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	resp, err := c.transcriptService.ClearMatch(ctx, id, ctx.Param("requirementId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Prerequisite match cleared"))
}

// GetSuggestions ranks course records as candidates for a prerequisite
func (c *TranscriptController) GetSuggestions(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(fmt.Sprintf("invalid limit %q", raw)))
			return
		}
	}
	resp, err := c.transcriptService.Suggest(ctx, id, ctx.Param("requirementId"), limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Suggestions retrieved successfully"))
}

// GetEvaluation returns the GPA metrics and eligibility verdict
func (c *TranscriptController) GetEvaluation(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	resp, err := c.transcriptService.Evaluate(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp, "Evaluation computed successfully"))
}

// Export downloads the course table as CSV (default) or JSON
func (c *TranscriptController) Export(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	format, err := structured.ParseFormat(ctx.DefaultQuery("format", string(structured.FormatCSV)))
	if err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedFormat, err))
		return
	}
	body, err := c.transcriptService.Export(ctx, id, format)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="transcript-%s.%s"`, id, format))
	ctx.Data(http.StatusOK, format.ContentType(), body)
}

// Report renders the evaluation as Markdown (default) or HTML
func (c *TranscriptController) Report(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	body, contentType, err := c.transcriptService.Report(ctx, id, ctx.DefaultQuery("format", "md"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, contentType, body)
}

// DeleteSession discards a session and its records
func (c *TranscriptController) DeleteSession(ctx *gin.Context) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}
	if err := c.transcriptService.DeleteSession(ctx, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Transcript session deleted"}, "Transcript session deleted successfully"))
}

func sessionAndIndex(ctx *gin.Context) (uuid.UUID, int, bool) {
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return uuid.Nil, 0, false
	}
	index, err := helpers.ParseIndexParam(ctx, "index")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return uuid.Nil, 0, false
	}
	return id, index, true
}
