package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/songzhibin97/deepdive/internal/ai"
	"github.com/songzhibin97/deepdive/internal/data/collector"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/models"
)

const (
	MinComparisonProjects = 2
	MaxComparisonProjects = 3
)

var (
	ErrEmptyInput          = errors.New("empty project input")
	ErrInvalidProjectCount = fmt.Errorf("please provide %d-%d projects to compare", MinComparisonProjects, MaxComparisonProjects)
)

// PipelineError is the single failure of an analysis request; no partial report exists.
type PipelineError struct {
	Input string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("analysis of %q failed: %v", e.Input, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Collector gathers provider data for one project
type Collector interface {
	ResolveHandle(ctx context.Context, handle string) (string, bool)
	Collect(ctx context.Context, req collector.Request) *models.ProjectRecord
}

// Analyzer produces a single-project report
type Analyzer interface {
	Analyze(ctx context.Context, raw string, explicit models.InputType) (*models.AnalysisReport, error)
}

type Pipeline struct {
	collector Collector
	scorer    ai.Scorer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(c Collector, scorer ai.Scorer, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		collector: c,
		scorer:    scorer,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Analyze resolves, collects, scores and assembles one report. ReportURL is left unset.
func (p *Pipeline) Analyze(ctx context.Context, raw string, explicit models.InputType) (report *models.AnalysisReport, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = &PipelineError{Input: raw, Err: fmt.Errorf("panic: %v", r)}
		}
		p.metrics.ObserveAnalysis(start, err)
		if err != nil {
			p.logger.Error("analysis failed", "input", raw, "error", err)
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return nil, &PipelineError{Input: raw, Err: ErrEmptyInput}
	}

	id := identify(raw, explicit)
	name := p.ResolveCanonicalName(ctx, id)
	p.logger.Info("starting analysis", "input", raw, "input_type", id.Type, "project", name)

	req := collector.Request{Name: name}
	switch id.Type {
	case models.InputContractAddress:
		req.ContractAddress = models.String(id.Value)
	case models.InputSocialHandle:
		req.Handle = id.Value
	}

	record := p.collector.Collect(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, &PipelineError{Input: raw, Err: err}
	}

	var (
		wg         sync.WaitGroup
		summary    string
		scores     models.ScoreSet
		assessment models.RiskAssessment
		thesis     models.InvestmentThesis
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		summary = p.scorer.Summarize(ctx, record)
	}()
	go func() {
		defer wg.Done()
		assessment = p.scorer.AssessRisk(ctx, record)
	}()
	// 投资逻辑依赖评分结果
	scores = p.scorer.Score(ctx, record)
	thesis = p.scorer.GenerateThesis(ctx, record, scores)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &PipelineError{Input: raw, Err: err}
	}

	return &models.AnalysisReport{
		ProjectData:       *record,
		ExecutiveSummary:  summary,
		Scores:            scores,
		RiskFlags:         assessment,
		InvestmentThesis:  thesis,
		AnalysisTimestamp: p.now().UTC().Format(time.RFC3339),
	}, nil
}

// ValidateComparison enforces the project count accepted by Compare.
func ValidateComparison(names []string) error {
	if len(names) < MinComparisonProjects || len(names) > MaxComparisonProjects {
		return ErrInvalidProjectCount
	}
	return nil
}

// Compare analyzes every name with the pipeline itself.
func (p *Pipeline) Compare(ctx context.Context, names []string) (*models.ComparisonReport, error) {
	return p.CompareUsing(ctx, p, names)
}

// CompareUsing analyzes names concurrently with analyzer. Failed projects are dropped and
// listed in Failed; the comparison itself only fails on an invalid project count.
func (p *Pipeline) CompareUsing(ctx context.Context, analyzer Analyzer, names []string) (*models.ComparisonReport, error) {
	if err := ValidateComparison(names); err != nil {
		return nil, err
	}

	results := make([]*models.AnalysisReport, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &PipelineError{Input: name, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			results[i], errs[i] = analyzer.Analyze(ctx, name, "")
		}(i, name)
	}
	wg.Wait()

	report := &models.ComparisonReport{
		Projects:  make([]models.AnalysisReport, 0, len(names)),
		Requested: len(names),
		Failed:    make([]string, 0),
	}
	for i, name := range names {
		if errs[i] != nil || results[i] == nil {
			p.logger.Error("dropping project from comparison", "project", name, "error", errs[i])
			report.Failed = append(report.Failed, name)
			continue
		}
		report.Projects = append(report.Projects, *results[i])
	}
	report.Succeeded = len(report.Projects)
	p.metrics.ComparisonProjects(report.Succeeded, len(report.Failed))

	report.ComparativeSummary = p.scorer.CompareSummary(ctx, report.Projects)
	return report, nil
}
