package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment-analytics-api/services"
)

type PredictionHandler struct {
	predictions *services.PredictionService
	logger      *slog.Logger
}

func NewPredictionHandler(predictions *services.PredictionService, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, logger: logger}
}

type PredictRequest struct {
	EquipmentType string `json:"equipment_type" binding:"required"`
}

// PredictTypeRequest uses pointers so a legitimate zero reading is not
// rejected as missing.
type PredictTypeRequest struct {
	Flowrate    *float64 `json:"flowrate" binding:"required"`
	Pressure    *float64 `json:"pressure" binding:"required"`
	Temperature *float64 `json:"temperature" binding:"required"`
}

func (h *PredictionHandler) Predict(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, badRequest(err.Error()))
		return
	}

	res, err := h.predictions.Predict(c.Request.Context(), owner, id, req.EquipmentType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PredictionHandler) PredictType(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req PredictTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, badRequest(err.Error()))
		return
	}

	res, err := h.predictions.ClassifyType(c.Request.Context(), owner, id, *req.Flowrate, *req.Pressure, *req.Temperature)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PredictionHandler) FeatureImportance(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}
	id, err := datasetID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.predictions.FeatureImportance(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataset_id": id, "feature_importance": res})
}

// PredictAll runs every trained dataset of the caller over its own categories.
func (h *PredictionHandler) PredictAll(c *gin.Context) {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return
	}

	res, err := h.predictions.PredictAll(c.Request.Context(), owner)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res, "count": len(res)})
}
