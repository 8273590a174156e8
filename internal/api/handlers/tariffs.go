package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tariff-bench/internal/api/models"
	"tariff-bench/internal/tariff"
)

// TariffHandler exposes the named tariff set
type TariffHandler struct {
	state *State
}

func NewTariffHandler(state *State) *TariffHandler {
	return &TariffHandler{state: state}
}

// List handles GET /api/v1/tariffs
func (h *TariffHandler) List(c *gin.Context) {
	horizon := h.state.Horizon
	if v := c.Query("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "INVALID_HORIZON", "horizon must be a positive integer")
			return
		}
		horizon = n
	}

	all := tariff.All(h.state.Cfg.Tariffs.Seed)
	out := make([]models.TariffInfo, len(all))
	for i, t := range all {
		out[i] = models.TariffInfo{Name: t.Name(), Prices: t.Prices(horizon)}
	}
	c.JSON(http.StatusOK, gin.H{"tariffs": out})
}
