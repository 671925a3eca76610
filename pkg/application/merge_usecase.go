package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WangYihang/Blocklist-Merger/pkg/dedup"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/repository"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/service"
	"github.com/WangYihang/Blocklist-Merger/pkg/parser"
)

// Stage names reported to observers
const (
	StageFetch    = "fetch"
	StagePrepare  = "prepare"
	StageGroup    = "group"
	StageSort     = "sort"
	StageCoverage = "coverage"
	StageExtra    = "extra_filtering"
	StageWrite    = "write"
)

// MergeUseCase downloads every source, removes covered entries and writes the merged list
type MergeUseCase struct {
	config Config

	opener service.SourceOpener
	writer repository.ListWriter
	newSet func() repository.DomainSet
	logger *slog.Logger

	observers []Observer
	now       func() time.Time
}

// Config holds the use case configuration
type Config struct {
	RunID            string
	Sources          []entity.Source
	SkipLines        parser.Matcher
	SkipBlockedHosts parser.Matcher
	KnownBadHosts    []string
	ExtraFiltering   bool
	Strategy         dedup.Strategy
	Window           int
	// Workers is the number of goroutines scanning the coverage window
	Workers int
	// FetchConcurrency caps concurrent downloads; 0 fetches every source at once
	FetchConcurrency int
}

// Observer observes a merge run. Source callbacks arrive from several goroutines.
type Observer interface {
	SourceStarted(src entity.Source)
	SourceRead(uri string, n int)
	SourceDone(report entity.SourceReport, err error)
	StageDone(stage entity.StageTiming)
	RoundDone(round, window, removed int)
	Finished(report *entity.Report)
}

// NewMergeUseCase creates a new merge use case. newSet must return an empty,
// concurrency-safe set on every call.
func NewMergeUseCase(
	config Config,
	opener service.SourceOpener,
	writer repository.ListWriter,
	newSet func() repository.DomainSet,
	logger *slog.Logger,
) *MergeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &MergeUseCase{
		config: config,
		opener: opener,
		writer: writer,
		newSet: newSet,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterObserver registers an observer
func (uc *MergeUseCase) RegisterObserver(observer Observer) {
	uc.observers = append(uc.observers, observer)
}

// Execute runs the whole pipeline. Any source failure aborts the run before
// the output is touched.
func (uc *MergeUseCase) Execute(ctx context.Context) (*entity.Report, error) {
	start := uc.now()
	report := &entity.Report{RunID: uc.config.RunID}
	uc.logger.Info("running", "sources", len(uc.config.Sources), "strategy", uc.config.Strategy.String(), "extra_filtering", uc.config.ExtraFiltering)

	combine, external, allow := uc.newSet(), uc.newSet(), uc.newSet()

	stageStart := uc.now()
	sources, err := uc.readSources(ctx, combine, external, allow)
	report.Sources = sources
	if err != nil {
		return report, fmt.Errorf("failed to read sources: %w", err)
	}
	report.CombineCount = combine.Len()
	report.ExternalCount = external.Len()
	report.AllowCount = allow.Len()
	uc.stageDone(report, StageFetch, stageStart, combine.Len())

	stageStart = uc.now()
	combine.ExceptWith(external)
	knownBadRemoved := dedup.RemoveKnownBadHosts(uc.config.KnownBadHosts, combine)
	for _, host := range uc.config.KnownBadHosts {
		if host != "" {
			combine.Add(host)
		}
	}
	combine.UnionWith(external)
	uc.logger.Debug("prepared combine set", "known_bad_removed", knownBadRemoved, "size", combine.Len())
	uc.stageDone(report, StagePrepare, stageStart, combine.Len())

	stageStart = uc.now()
	grouped := dedup.FilterGrouped(combine)
	uc.logger.Debug("grouped by owning domain", "removed", grouped)
	uc.stageDone(report, StageGroup, stageStart, combine.Len())

	stageStart = uc.now()
	sorted := domain.SortSet(combine)
	uc.stageDone(report, StageSort, stageStart, len(sorted))

	if err := ctx.Err(); err != nil {
		return report, err
	}

	filter := dedup.NewFilter(
		dedup.WithWindow(uc.config.Window),
		dedup.WithWorkers(uc.config.Workers),
		dedup.WithStrategy(uc.config.Strategy),
		dedup.WithRoundHook(uc.roundDone),
	)
	scratch := uc.newSet()

	stageStart = uc.now()
	result := filter.ProcessCombined(sorted, external, scratch)
	report.CoverageRounds = result.Rounds
	uc.stageDone(report, StageCoverage, stageStart, len(result.Domains))

	if uc.config.ExtraFiltering {
		uc.logger.Info("start extra filtering")
		stageStart = uc.now()
		extra := filter.ProcessWithExtraFiltering(result.Domains, external, scratch)
		report.ExtraRemoved = extra.Removed()
		result.Domains = extra.Domains
		uc.stageDone(report, StageExtra, stageStart, len(result.Domains))
		uc.logger.Info("done extra filtering", "removed", report.ExtraRemoved)
	}

	allowOverrides := allow.Items()
	slices.Sort(allowOverrides)

	stageStart = uc.now()
	list := &entity.MergedList{
		Domains:        result.Domains,
		AllowOverrides: allowOverrides,
		GeneratedAt:    uc.now().UTC(),
	}
	if err := uc.writer.Write(ctx, list); err != nil {
		return report, fmt.Errorf("failed to write merged list: %w", err)
	}
	uc.stageDone(report, StageWrite, stageStart, len(list.Domains)+len(list.AllowOverrides))

	report.FinalCount = len(list.Domains)
	report.Elapsed = uc.now().Sub(start)
	uc.logger.Info("finalized", "elapsed", report.Elapsed, "count", len(list.Domains)+len(list.AllowOverrides))

	for _, o := range uc.observers {
		o.Finished(report)
	}
	return report, nil
}

func (uc *MergeUseCase) readSources(ctx context.Context, combine, external, allow repository.DomainSet) ([]entity.SourceReport, error) {
	reports := make([]entity.SourceReport, len(uc.config.Sources))

	g, gctx := errgroup.WithContext(ctx)
	if uc.config.FetchConcurrency > 0 {
		g.SetLimit(uc.config.FetchConcurrency)
	}
	for i, src := range uc.config.Sources {
		i, src := i, src
		g.Go(func() error {
			dst := combine
			if src.Action == entity.ActionExternalCoverage {
				dst = external
			}

			rep, err := uc.readSource(gctx, src, dst, allow)
			reports[i] = rep
			return err
		})
	}

	err := g.Wait()
	return reports, err
}

func (uc *MergeUseCase) readSource(ctx context.Context, src entity.Source, dst, allow repository.DomainSet) (rep entity.SourceReport, err error) {
	start := uc.now()
	rep = entity.SourceReport{URI: src.URI, Format: src.Format, Action: src.Action}
	for _, o := range uc.observers {
		o.SourceStarted(src)
	}
	defer func() {
		rep.Duration = uc.now().Sub(start)
		for _, o := range uc.observers {
			o.SourceDone(rep, err)
		}
		if err != nil {
			uc.logger.Error("source failed", "uri", src.URI, "error", err)
		} else {
			uc.logger.Info("source parsed", "uri", src.URI, "lines", rep.Lines, "accepted", rep.Accepted, "allowed", rep.Allowed, "bytes", rep.Bytes, "duration", rep.Duration)
		}
	}()

	body, err := uc.opener.Open(ctx, src.URI)
	if err != nil {
		return rep, err
	}
	defer body.Close()

	reader := &countingReader{ctx: ctx, r: body, onRead: func(n int) {
		rep.Bytes += int64(n)
		for _, o := range uc.observers {
			o.SourceRead(src.URI, n)
		}
	}}

	var stats parser.Stats
	switch src.Format {
	case entity.FormatHosts:
		stats, err = parser.ParseHosts(reader, dst, parser.HostsOptions{
			SkipLines:        uc.config.SkipLines,
			SkipBlockedHosts: uc.config.SkipBlockedHosts,
			Prefix:           parser.NewPrefix(src.Prefix),
		})
	case entity.FormatAdBlock:
		stats, err = parser.ParseAdBlock(reader, dst, allow, uc.config.SkipBlockedHosts)
	default:
		return rep, fmt.Errorf("unsupported format %s for %s", src.Format, src.URI)
	}

	rep.Lines = stats.Lines
	rep.Accepted = stats.Accepted()
	rep.Allowed = stats.Allowed
	rep.Reasons = stats.Map()
	if err != nil {
		return rep, fmt.Errorf("failed to parse %s: %w", src.URI, err)
	}
	return rep, nil
}

func (uc *MergeUseCase) stageDone(report *entity.Report, stage string, start time.Time, size int) {
	d := uc.now().Sub(start)
	report.AddStage(stage, d, size)
	uc.logger.Debug("stage done", "stage", stage, "duration", d, "size", size)
	for _, o := range uc.observers {
		o.StageDone(entity.StageTiming{Stage: stage, Duration: d, Size: size})
	}
}

func (uc *MergeUseCase) roundDone(round, window, removed int) {
	uc.logger.Debug("coverage round done", "round", round, "window", window, "removed", removed)
	for _, o := range uc.observers {
		o.RoundDone(round, window, removed)
	}
}

// countingReader reports every read and stops once ctx is done
type countingReader struct {
	ctx    context.Context
	r      io.Reader
	onRead func(n int)
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.onRead(n)
	}
	return n, err
}
