package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tariff-bench/internal/api/models"
	"tariff-bench/internal/bench"
	"tariff-bench/internal/surrogate"
)

// SurrogateHandler trains and queries the surrogate model
type SurrogateHandler struct {
	state *State
}

func NewSurrogateHandler(state *State) *SurrogateHandler {
	return &SurrogateHandler{state: state}
}

// Train handles POST /api/v1/surrogate/train. The training set is every
// usable scenario record accumulated by previous benchmark runs.
func (h *SurrogateHandler) Train(c *gin.Context) {
	ds := bench.TrainingDataset(h.state.Records())
	if err := h.state.Surrogate().Fit(ds); err != nil {
		badRequest(c, "TRAIN_FAILED", err.Error())
		return
	}
	metrics, err := h.state.Surrogate().Metrics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, models.TrainResponse{Samples: ds.Len(), Metrics: metrics})
}

// Metrics handles GET /api/v1/surrogate/metrics
func (h *SurrogateHandler) Metrics(c *gin.Context) {
	metrics, err := h.state.Surrogate().Metrics()
	if err != nil {
		if errors.Is(err, surrogate.ErrNotFitted) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "NOT_FITTED", Message: err.Error()},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// Predict handles POST /api/v1/surrogate/predict
func (h *SurrogateHandler) Predict(c *gin.Context) {
	var req models.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	spec, err := h.state.resolveScenario(req.Scenario, 0, h.state.Horizon)
	if err != nil {
		badRequest(c, "INVALID_SCENARIO", err.Error())
		return
	}
	cost, fair, err := h.state.Surrogate().PredictScenario(spec.Prices, spec.Trading)
	if err != nil {
		if errors.Is(err, surrogate.ErrNotFitted) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "NOT_FITTED", Message: err.Error()},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "PREDICT_FAILED", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, models.PredictResponse{Cost: cost, Fairness: fair})
}
