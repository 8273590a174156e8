package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tariff-bench/internal/api/models"
	"tariff-bench/internal/bench"
)

// SensitivityHandler runs parameter sweeps
type SensitivityHandler struct {
	state *State
}

func NewSensitivityHandler(state *State) *SensitivityHandler {
	return &SensitivityHandler{state: state}
}

// Run handles POST /api/v1/sensitivity
func (h *SensitivityHandler) Run(c *gin.Context) {
	var req models.SensitivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	t, err := tariffByName(req.Tariff, h.state.Cfg.Tariffs.Seed)
	if err != nil {
		badRequest(c, "INVALID_TARIFF", err.Error())
		return
	}

	sweep := &bench.Sweep{
		Tariff:  t,
		Horizon: h.state.Horizon,
		Trading: req.Trading,
		Params:  req.Params,
	}

	var result *bench.SweepResult
	switch req.Mode {
	case "", "exact":
		result, err = h.state.Orc.Sensitivity(c.Request.Context(), h.state.Community, sweep)
	case "surrogate":
		result, err = bench.SensitivitySurrogate(sweep, h.state.Surrogate())
	default:
		badRequest(c, "INVALID_MODE", "mode must be exact or surrogate")
		return
	}
	if err != nil {
		badRequest(c, "SWEEP_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, models.SensitivityResponse{
		Mode:              result.Mode,
		Points:            result.Points,
		Influence:         result.Influence,
		FairnessInfluence: result.FairnessInfluence,
	})
}
