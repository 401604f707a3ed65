package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/batch-engine/internal/batching"
	"github.com/hxuan190/batch-engine/internal/common"
	"github.com/hxuan190/batch-engine/internal/config"
	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/fees"
	"github.com/hxuan190/batch-engine/internal/http"
	"github.com/hxuan190/batch-engine/internal/orderbook"
	"github.com/hxuan190/batch-engine/internal/pricing"
	"github.com/hxuan190/batch-engine/internal/services"
	"github.com/hxuan190/batch-engine/internal/treasury"
	"github.com/hxuan190/batch-engine/internal/venues"
)

func main() {
	// Runtime tuning (GOGC, GOMAXPROCS, GOMEMLIMIT)
	common.InitRuntime()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	generalConf := &config.GeneralConfig{}
	if err := generalConf.Load(); err != nil {
		log.Error().Err(err).Msg("failed to load general config")
		return
	}
	engineConf := &config.EngineConfig{}
	if err := engineConf.Load(); err != nil {
		log.Error().Err(err).Msg("failed to load engine config")
		return
	}

	if level, err := zerolog.ParseLevel(strings.ToLower(generalConf.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if generalConf.Env == config.DevEnv {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	weth := ethcommon.HexToAddress(engineConf.WETHAddress)
	beacon := ethcommon.HexToAddress(engineConf.BeaconAddress)

	registry := venues.NewRegistry([]venues.Factory{
		{
			Address:      common.UniswapV2Factory,
			InitCodeHash: common.UniswapV2InitCodeHash,
			Kind:         domain.ReserveBased,
			FeeTier:      3000,
		},
	})

	executor := batching.NewSimulatedExecutor()
	aggregator := pricing.NewAggregator(registry, executor)
	feeEngine := fees.NewEngine()
	protocolTreasury := treasury.New()
	rewardSink := batching.NewLedgerRewardSink()

	engine := batching.NewMatchingEngine(
		weth,
		registry,
		aggregator,
		feeEngine,
		executor,
		protocolTreasury,
		rewardSink,
	)

	store, err := orderbook.NewStore(engineConf.DBPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open order store")
		return
	}
	defer store.Close()

	sweeper := services.NewSweeper(store, engine, beacon)
	sweeper.TrackPair(common.USDCAddress, weth)

	httpSvc := http.NewHTTPService(
		generalConf,
		http.NewOrderHandler(store, sweeper),
		http.NewPriceHandler(aggregator),
		http.NewVenueHandler(registry),
		http.NewExecuteHandler(sweeper, beacon),
		http.NewTreasuryHandler(protocolTreasury),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if engineConf.ExecuteInterval > 0 {
		go sweeper.Run(ctx, time.Duration(engineConf.ExecuteInterval)*time.Second)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSvc.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	log.Info().Msg("Shutting down services...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSvc.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
