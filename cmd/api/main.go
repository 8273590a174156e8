package main

import (
	"flag"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"tariff-bench/internal/api/handlers"
	"tariff-bench/internal/api/middleware"
	"tariff-bench/internal/bench"
	"tariff-bench/internal/config"
	"tariff-bench/internal/data"
	"tariff-bench/internal/dispatch"
	"tariff-bench/internal/model"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	community, horizon, err := loadCommunity(cfg)
	if err != nil {
		log.Fatalf("load community: %v", err)
	}
	log.Printf("community: %d buildings, %d intervals", len(community), horizon)

	opt := dispatch.New(dispatch.Options{
		IntervalHours:    cfg.Solver.IntervalHours,
		SolverTolerance:  cfg.Solver.Tolerance,
		BalanceTolerance: cfg.Solver.BalanceTolerance,
		Timeout:          cfg.SolveTimeout(),
	})
	orc := bench.NewOrchestrator(opt, cfg.Solver.Workers)
	state := handlers.NewState(cfg, community, horizon, orc)

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	benchmarkHandler := handlers.NewBenchmarkHandler(state)
	tariffHandler := handlers.NewTariffHandler(state)
	surrogateHandler := handlers.NewSurrogateHandler(state)
	sensitivityHandler := handlers.NewSensitivityHandler(state)
	communityHandler := handlers.NewCommunityHandler(state)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/benchmark", benchmarkHandler.Run)
		api.GET("/tariffs", tariffHandler.List)
		api.GET("/community", communityHandler.Get)

		api.POST("/surrogate/train", surrogateHandler.Train)
		api.GET("/surrogate/metrics", surrogateHandler.Metrics)
		api.POST("/surrogate/predict", surrogateHandler.Predict)

		api.POST("/sensitivity", sensitivityHandler.Run)
	}

	addr := cfg.Server.Addr
	if port := os.Getenv("API_PORT"); port != "" {
		addr = ":" + port
	}
	log.Printf("Starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func loadCommunity(cfg *config.Config) ([]model.Building, int, error) {
	if cfg.CommunityFile != "" {
		cf, err := data.LoadCommunityJSON(cfg.CommunityFile)
		if err != nil {
			return nil, 0, err
		}
		return cf.Buildings, cf.Horizon, nil
	}
	buildings := data.SyntheticCommunity(data.SyntheticOptions{
		Buildings:    cfg.Synthetic.Buildings,
		Horizon:      cfg.Synthetic.Horizon,
		Seed:         cfg.Synthetic.Seed,
		BatteryShare: cfg.Synthetic.BatteryShare,
		PVShare:      cfg.Synthetic.PVShare,
		FlexShare:    cfg.Synthetic.FlexShare,
		FlexBand:     cfg.Synthetic.FlexBand,
	})
	return buildings, cfg.Synthetic.Horizon, nil
}
