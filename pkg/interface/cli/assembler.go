package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/WangYihang/Blocklist-Merger/pkg/application"
	"github.com/WangYihang/Blocklist-Merger/pkg/common"
	"github.com/WangYihang/Blocklist-Merger/pkg/config"
	"github.com/WangYihang/Blocklist-Merger/pkg/dedup"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/repository"
	"github.com/WangYihang/Blocklist-Merger/pkg/infrastructure/http"
	"github.com/WangYihang/Blocklist-Merger/pkg/infrastructure/metrics"
	"github.com/WangYihang/Blocklist-Merger/pkg/infrastructure/storage"
	"github.com/WangYihang/Blocklist-Merger/pkg/interface/presenter"
)

// Assembler assembles all components for the application
type Assembler struct {
	config *Config
	stderr io.Writer
}

// NewAssembler creates a new assembler. Logs and progress go to stderr.
func NewAssembler(config *Config, stderr io.Writer) *Assembler {
	return &Assembler{config: config, stderr: stderr}
}

// App is an assembled merge run
type App struct {
	RunID    string
	Logger   *slog.Logger
	UseCase  *application.MergeUseCase
	Recorder *metrics.Recorder
	Writer   *storage.ListWriter

	// Server is nil unless --metrics-addr is set
	Server *metrics.Server
	// Progress is nil when progress bars are disabled
	Progress *presenter.Progress

	metricsTextfile string
}

// Assemble loads the settings and wires the merge use case with all dependencies
func (a *Assembler) Assemble() (*App, error) {
	runID := uuid.NewString()
	logger, err := NewLogger(a.stderr, a.config.LogLevel, a.config.LogFormat)
	if err != nil {
		return nil, err
	}
	logger = logger.With("run_id", runID)

	settings, err := config.Load(a.config.ConfigFile)
	if err != nil {
		logger.Error("unable to load settings", "path", a.config.ConfigFile, "error", err)
		return nil, fmt.Errorf("unable to load settings: %w", err)
	}
	a.config.Apply(settings)

	userAgent := a.config.UserAgent
	if userAgent == "" {
		userAgent = common.PV.UserAgent()
	}
	fetcher := http.NewFetcher(http.Config{
		Timeout:         a.config.HTTPTimeoutDuration,
		MaxResponseSize: a.config.MaxResponseSize,
		UserAgent:       userAgent,
		Retries:         a.config.Retries,
		Logger:          logger,
	})

	writer := storage.NewListWriter(settings.OutputFileName, settings.HeaderLines, common.PV.Short())

	useCase := application.NewMergeUseCase(
		application.Config{
			RunID:            runID,
			Sources:          settings.Sources(),
			SkipLines:        storage.NewByteMatcher(settings.Filters.SkipLines),
			SkipBlockedHosts: storage.NewByteMatcher(settings.Filters.SkipBlockedHosts),
			KnownBadHosts:    settings.KnownBadHosts,
			ExtraFiltering:   settings.ExtraFiltering,
			Strategy:         dedup.StrategyFromMultiPass(settings.MultiPassFilter),
			Window:           a.config.Window,
			Workers:          a.config.Workers,
			FetchConcurrency: a.config.FetchConcurrency,
		},
		fetcher,
		writer,
		func() repository.DomainSet { return storage.NewDomainSet() },
		logger,
	)

	app := &App{
		RunID:           runID,
		Logger:          logger,
		UseCase:         useCase,
		Recorder:        metrics.NewRecorder(),
		Writer:          writer,
		metricsTextfile: a.config.MetricsTextfile,
	}
	useCase.RegisterObserver(app.Recorder)

	if a.config.MetricsAddr != "" {
		server, err := metrics.Listen(a.config.MetricsAddr, app.Recorder.Registry(), logger)
		if err != nil {
			return nil, err
		}
		app.Server = server
	}

	if !a.config.NoProgress {
		if width, ok := common.TerminalWidth(); ok {
			app.Progress = presenter.NewProgress(a.stderr, width)
			useCase.RegisterObserver(app.Progress)
		}
	}

	return app, nil
}

// Run executes the merge. The metrics server, when enabled, lives for the
// duration of the run; the textfile is written even when the run fails.
func (app *App) Run(ctx context.Context) (*entity.Report, error) {
	serveCtx, stopServer := context.WithCancel(ctx)
	serveDone := make(chan error, 1)
	if app.Server != nil {
		go func() {
			serveDone <- app.Server.Serve(serveCtx)
		}()
	} else {
		serveDone <- nil
	}

	report, err := app.UseCase.Execute(ctx)
	if app.Progress != nil {
		app.Progress.Wait()
	}
	if report != nil {
		report.OutputFile = app.Writer.Path()
	}

	stopServer()
	if serveErr := <-serveDone; serveErr != nil {
		app.Logger.Warn("metrics exporter stopped", "error", serveErr)
	}

	if app.metricsTextfile != "" {
		if werr := app.Recorder.WriteToTextfile(app.metricsTextfile); werr != nil {
			app.Logger.Warn("unable to write metrics", "path", app.metricsTextfile, "error", werr)
		}
	}

	return report, err
}

// NewLogger builds the slog logger selected by --log-level and --log-format
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
