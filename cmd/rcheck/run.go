package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"rcheck/internal/config"
	"rcheck/internal/logger"
	"rcheck/internal/pipeline"
	"rcheck/internal/progress"
	"rcheck/internal/recognition"
	"rcheck/internal/report"
	"rcheck/internal/segment"
	"rcheck/internal/shutdown"
	"rcheck/pkg/utils"
)

func run(cfg config.Config, configPath string, files []string) error {
	sh := shutdown.New()
	sh.Listen()
	defer sh.Shutdown()

	runID := uuid.New().String()
	log := logger.New(cfg.Verbose)
	defer log.Close()

	if !cfg.Verbose {
		setupFileLog(log, runID)
	}
	if configPath != "" {
		log.Debug("Loaded configuration from: %s", configPath)
	}
	log.Debug("Run %s: %d files, providers %v", runID, len(files), cfg.Providers)

	log.Debug("Checking dependencies...")
	warnings, err := utils.CheckDependencies(requirements(cfg))
	for _, w := range warnings {
		log.Warn("%s", w)
	}
	if err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	tmpDir, err := utils.CreateTempDir(cfg.TempDir)
	if err != nil {
		return fmt.Errorf("error creating temporary folder: %w", err)
	}
	log.Debug("Temporary folder: %s", tmpDir)
	sh.AddCleanup(func() {
		log.Debug("Cleaning up...")
		if err := utils.Cleanup(tmpDir); err != nil {
			log.Warn("Error during cleanup: %v", err)
		}
	})

	providers, err := pipeline.NewProviders(cfg, recognition.NewCache(), log)
	if err != nil {
		return err
	}

	preparer := segment.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, tmpDir, log.Named("segment"))
	preparer.Tracker = sh

	trim, _ := cfg.Trim()
	reporter := progress.New(os.Stdout)
	console := report.NewConsole(cfg.Color && reporter.Interactive())

	p := &pipeline.Pipeline{
		Preparer:  preparer,
		Providers: providers,
		Reporter:  reporter,
		Logger:    log,
		Workers:   cfg.Workers,
		Trim:      trim,
		Format:    console.Line,
	}

	reporter.Println(report.Header())
	reporter.Println(report.Legend)

	log.SetLiveDisplay(reporter.Interactive() && !cfg.Verbose)
	outcomes := p.Run(sh.Context(), files)
	log.SetLiveDisplay(false)

	if cfg.OutputFile != "" {
		if err := report.WriteFile(cfg.OutputFile, outcomes); err != nil {
			log.Error("%v", err)
		} else {
			log.Debug("Results written to %s", cfg.OutputFile)
		}
	}

	if cfg.Stat {
		fmt.Println(pipeline.Summarize(outcomes))
		fmt.Println(report.SummaryTable(outcomes))
	}

	if err := sh.Context().Err(); err != nil {
		log.Warn("Interrupted after %d of %d tasks", len(outcomes), len(files)*len(providers))
		return err
	}
	return nil
}

func setupFileLog(log *logger.Logger, runID string) {
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		return
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("rcheck_%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), runID[:8]))
	if err := log.SetFileLog(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
		return
	}
	log.Debug("Logging to file: %s", logFile)
}

// requirements lists the external tools this configuration needs.
func requirements(cfg config.Config) []utils.Requirement {
	_, trimming := cfg.Trim()
	reqs := []utils.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "used for durations, falls back to embedded tags",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "required to trim samples with --time",
			Optional:    !trimming,
		},
	}
	if cfg.HasProvider(recognition.KindAcoustID) {
		reqs = append(reqs, utils.Requirement{
			Name:        "fpcalc",
			Command:     cfg.Tools.FPCalc,
			Description: "required for AcoustID fingerprints (chromaprint)",
		})
	}
	return reqs
}
