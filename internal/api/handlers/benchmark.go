package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tariff-bench/internal/api/models"
	"tariff-bench/internal/bench"
	"tariff-bench/internal/model"
)

// BenchmarkHandler handles benchmark batch requests
type BenchmarkHandler struct {
	state *State
}

func NewBenchmarkHandler(state *State) *BenchmarkHandler {
	return &BenchmarkHandler{state: state}
}

// Run handles POST /api/v1/benchmark
func (h *BenchmarkHandler) Run(c *gin.Context) {
	var req models.BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Scenarios) == 0 {
		badRequest(c, "INVALID_REQUEST", "at least one scenario is required")
		return
	}

	community := h.state.Community
	horizon := h.state.Horizon
	if len(req.Buildings) > 0 {
		horizon = len(req.Buildings[0].LoadKWh)
		if err := model.ValidateCommunity(req.Buildings, horizon); err != nil {
			badRequest(c, "INVALID_COMMUNITY", err.Error())
			return
		}
		community = req.Buildings
	}

	scenarios := make([]bench.ScenarioSpec, len(req.Scenarios))
	for i, in := range req.Scenarios {
		spec, err := h.state.resolveScenario(in, i, horizon)
		if err != nil {
			badRequest(c, "INVALID_SCENARIO", err.Error())
			return
		}
		scenarios[i] = spec
	}

	batch, err := h.state.Orc.Run(c.Request.Context(), community, scenarios)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "BENCHMARK_FAILED", Message: err.Error()},
		})
		return
	}
	h.state.AppendRecords(batch.Records)

	c.JSON(http.StatusOK, toBenchmarkResponse(batch, req.IncludeDispatch))
}

func toBenchmarkResponse(batch *bench.BatchResult, includeDispatch bool) models.BenchmarkResponse {
	resp := models.BenchmarkResponse{
		RunID:      batch.RunID,
		Succeeded:  batch.Succeeded,
		Infeasible: batch.Infeasible,
		Degraded:   batch.Degraded,
		TimedOut:   batch.TimedOut,
		Failed:     batch.Failed,
		Records:    make([]models.ScenarioSummary, len(batch.Records)),
	}
	for i := range batch.Records {
		rec := &batch.Records[i]
		sum := models.ScenarioSummary{
			Index:   rec.Index,
			Name:    rec.Name,
			Status:  string(rec.Status),
			Error:   rec.Error,
			Trading: rec.Trading,
		}
		if rec.Dispatch != nil && rec.Fairness != nil {
			sum.Cost = &models.CostSummary{
				TotalCost:   rec.Dispatch.TotalCost,
				MeanCost:    rec.Fairness.MeanCost,
				MinCost:     rec.Fairness.MinCost,
				MaxCost:     rec.Fairness.MaxCost,
				SolveTimeMS: float64(rec.Dispatch.SolveTime.Milliseconds()),
			}
			sum.Fairness = models.NewFairnessSummary(rec.Fairness)
			if includeDispatch {
				sum.Dispatch = rec.Dispatch
			}
		}
		resp.Records[i] = sum
	}

	ranked := bench.RankComposite(batch.Records)
	resp.Rankings = make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		resp.Rankings[i] = models.Ranking{
			Rank:  i + 1,
			Index: r.Record.Index,
			Name:  r.Record.Name,
			Score: r.Score,
		}
	}
	return resp
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: message},
	})
}
