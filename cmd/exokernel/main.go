package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/server"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/programs"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/scenario"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/shared/id"
)

func main() {
	// Parse flags
	program := flag.String("program", "forktree", "Program to boot: "+strings.Join(programs.Names(), ", "))
	scenarioPath := flag.String("scenario", "", "Scenario file (.yaml or .toml) to boot instead of -program")
	discipline := flag.String("discipline", "", "IPC send discipline: block or retry (overrides IPC_DISCIPLINE)")
	maxEnvs := flag.Int("max-envs", 0, "Env table size (overrides KERNEL_MAX_ENVS)")
	maxFrames := flag.Int("max-frames", 0, "Physical memory in pages (overrides KERNEL_MAX_FRAMES)")
	serve := flag.Bool("serve", false, "Keep an inspection HTTP server up until interrupted")
	port := flag.String("port", "", "Inspection server port (overrides PORT)")
	dev := flag.Bool("dev", false, "Development logging (debug level, console encoding)")

	defaults := programs.DefaultParams()
	depth := flag.Int("depth", defaults.Depth, "forktree depth")
	rounds := flag.Int("rounds", defaults.Rounds, "pingpong rounds")
	limit := flag.Int("limit", defaults.Limit, "primes upper bound")
	pages := flag.Int("pages", defaults.Pages, "cowstress pages")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// A single program is a one-run scenario. Flags beat scenario sizes.
	var scn *scenario.Scenario
	if *scenarioPath != "" {
		scn, err = scenario.Load(*scenarioPath)
		if err != nil {
			log.Fatalf("Failed to load scenario: %v", err)
		}
		scn.Apply(cfg)
	} else {
		scn = &scenario.Scenario{
			Name: *program,
			Runs: []scenario.Run{{
				Program: *program,
				Params:  scenario.Params{Depth: *depth, Rounds: *rounds, Limit: *limit, Pages: *pages},
			}},
		}
		if err := scn.Validate(); err != nil {
			log.Fatalf("%v (have %s)", err, strings.Join(programs.Names(), ", "))
		}
	}

	// Flags override environment
	if *discipline != "" {
		cfg.IPC.Discipline = *discipline
	}
	if *maxEnvs > 0 {
		cfg.Kernel.MaxEnvs = *maxEnvs
	}
	if *maxFrames > 0 {
		cfg.Kernel.MaxFrames = *maxFrames
	}
	if *serve {
		cfg.Server.Enabled = true
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	runID := id.NewRunID()
	logger = logger.With(zap.String("run_id", runID.String()))

	metrics := monitoring.NewMetrics()
	k := kernel.New(kernel.Options{
		MaxEnvs:   cfg.Kernel.MaxEnvs,
		MaxFrames: cfg.Kernel.MaxFrames,
		Logger:    logger,
		Metrics:   metrics,
	})
	con := programs.NewConsole(logger)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.NewServer(cfg, server.Deps{
			Inspector: k,
			Console:   con,
			RunID:     runID,
			Logger:    logger,
			Metrics:   metrics,
		})
		go func() {
			if err := srv.Run(); err != nil {
				logger.Error("Server error", zap.Error(err))
			}
		}()
	}

	logger.Info("Booting scenario",
		zap.String("scenario", scn.Name),
		zap.Int("runs", len(scn.Runs)),
		zap.String("discipline", cfg.IPC.Discipline),
		zap.Int("max_envs", cfg.Kernel.MaxEnvs),
	)
	start := time.Now()
	_, bootErr := scn.Boot(k, con, scenario.BootOptions{
		Discipline: cfg.IPC.Discipline,
		Logger:     logger,
		Metrics:    metrics,
	})
	if bootErr != nil {
		// Whatever did boot still runs to completion below.
		logger.Error("Failed to boot scenario", zap.Error(bootErr))
	}
	runErr := errors.Join(bootErr, k.Wait())
	elapsed := time.Since(start)
	con.Close()

	for _, line := range con.Lines() {
		fmt.Println(line)
	}
	stats := k.Stats()
	fmt.Printf("%s (%s): %d lines in %s, %d envs live, %d frames in use, %d aborts\n",
		scn.Name, runID, len(con.Lines()), elapsed.Round(time.Microsecond),
		stats.Envs, stats.FramesUsed, len(k.Aborts()))

	if srv != nil {
		// Handle graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		logger.Info("Program finished, serving until interrupted")
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Close(ctx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("Run failed", zap.Error(runErr))
		logger.Sync()
		os.Exit(1)
	}
}
