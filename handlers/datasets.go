package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-analytics-api/config"
	"equipment-analytics-api/middleware"
	"equipment-analytics-api/models"
	"equipment-analytics-api/services"
)

type DatasetHandler struct {
	analysis *services.AnalysisService
	reports  *services.ReportService
	upload   config.UploadConfig
	logger   *slog.Logger
}

func NewDatasetHandler(analysis *services.AnalysisService, reports *services.ReportService, upload config.UploadConfig, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{analysis: analysis, reports: reports, upload: upload, logger: logger}
}

type UploadResponse struct {
	Message string                 `json:"message"`
	Dataset models.DatasetOverview `json:"dataset"`
}

// ownerOrAbort reads the caller set by RequireAuth.
func ownerOrAbort(c *gin.Context) (uint, bool) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "kind": "unauthorized"})
	}
	return owner, ok
}

func datasetID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid dataset id")
	}
	return id, nil
}

// multipartOverhead leaves room for boundaries and part headers around a
// file of exactly MaxBytes.
const multipartOverhead = 64 << 10

func (h *DatasetHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("file exceeds %d bytes", h.upload.MaxBytes),
		"kind":  "invalid_request",
	})
}

// Upload ingests one CSV from the multipart field "file".
func (h *DatasetHandler) Upload(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}

	if h.upload.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.upload.MaxBytes+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		respondError(c, h.logger, badRequest("file field is required"))
		return
	}
	if suffix := h.upload.AllowedSuffix; suffix != "" && !strings.HasSuffix(strings.ToLower(fh.Filename), suffix) {
		respondError(c, h.logger, badRequest(fmt.Sprintf("only %s files are accepted", suffix)))
		return
	}
	if h.upload.MaxBytes > 0 && fh.Size > h.upload.MaxBytes {
		h.tooLarge(c)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	d, err := h.analysis.Ingest(c.Request.Context(), owner, fh.Filename, data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Message: "dataset analysed",
		Dataset: d.Overview(),
	})
}

func (h *DatasetHandler) List(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}

	items, err := h.analysis.List(c.Request.Context(), owner)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	overviews := make([]models.DatasetOverview, 0, len(items))
	for i := range items {
		overviews = append(overviews, items[i].Overview())
	}
	c.JSON(http.StatusOK, gin.H{"data": overviews, "count": len(overviews)})
}

func (h *DatasetHandler) Get(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	d, err := h.analysis.Get(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DatasetHandler) Delete(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.analysis.Delete(c.Request.Context(), owner, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dataset deleted", "id": id})
}

// Records pages through the raw rows of one dataset in upload order.
func (h *DatasetHandler) Records(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	d, err := h.analysis.Get(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paginate(d.RawRecords.Data(), ParsePagination(c)))
}

// Report serves the pre-encoded payload so cache hits skip re-marshalling.
func (h *DatasetHandler) Report(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body, err := h.reports.AssembleJSON(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
