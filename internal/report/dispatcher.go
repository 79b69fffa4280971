// Package report renders analysis results to PDF and schedules background renders.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/models"
)

const (
	KindAnalysis   = "analysis"
	KindComparison = "comparison"

	// URLPrefix is where stored reports are served from.
	URLPrefix = "/reports/"

	taskTimeout = time.Minute
)

// Renderer turns a report into a named PDF
type Renderer interface {
	Render(report *models.AnalysisReport) (string, []byte, error)
	RenderComparison(report *models.ComparisonReport) (string, []byte, error)
}

// URLRecorder attaches a rendered file URL to the cached analysis of a request, or releases
// the request's render claim when rendering fails.
type URLRecorder interface {
	SetReportURL(ctx context.Context, raw string, explicit models.InputType, url string) error
	ReleaseRender(ctx context.Context, raw string, explicit models.InputType) error
}

// Dispatcher runs one-shot render tasks off the request path.
type Dispatcher struct {
	renderer Renderer
	storage  data.ReportStorage
	urls     URLRecorder
	logger   *slog.Logger
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

// NewDispatcher builds a dispatcher; urls may be nil when no cache is configured.
func NewDispatcher(renderer Renderer, storage data.ReportStorage, urls URLRecorder, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		renderer: renderer,
		storage:  storage,
		urls:     urls,
		logger:   logger,
		metrics:  m,
	}
}

// SubmitAnalysis renders and stores report in the background. raw and explicit identify the
// request so the cached copy can learn its URL.
func (d *Dispatcher) SubmitAnalysis(report models.AnalysisReport, raw string, explicit models.InputType) {
	d.submit(KindAnalysis, func(ctx context.Context) (string, error) {
		rendered := false
		// 失败或 panic 时释放占位, 下次命中可重新渲染
		defer func() {
			if !rendered {
				d.release(ctx, raw, explicit)
			}
		}()

		filename, err := d.store(ctx, func() (string, []byte, error) { return d.renderer.Render(&report) })
		if err != nil {
			return "", err
		}
		rendered = true
		if d.urls != nil {
			if err := d.urls.SetReportURL(ctx, raw, explicit, URLPrefix+filename); err != nil {
				d.logger.Warn("failed to record report url", "filename", filename, "error", err)
			}
		}
		return filename, nil
	})
}

func (d *Dispatcher) release(ctx context.Context, raw string, explicit models.InputType) {
	if d.urls == nil {
		return
	}
	if err := d.urls.ReleaseRender(ctx, raw, explicit); err != nil {
		d.logger.Warn("failed to release render claim", "input", raw, "error", err)
	}
}

// SubmitComparison renders and stores a comparison report in the background.
func (d *Dispatcher) SubmitComparison(report models.ComparisonReport) {
	d.submit(KindComparison, func(ctx context.Context) (string, error) {
		return d.store(ctx, func() (string, []byte, error) { return d.renderer.RenderComparison(&report) })
	})
}

// Wait blocks until every submitted task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) store(ctx context.Context, render func() (string, []byte, error)) (string, error) {
	filename, content, err := render()
	if err != nil {
		return "", err
	}
	if err := d.storage.Save(ctx, filename, content); err != nil {
		return "", err
	}
	return filename, nil
}

func (d *Dispatcher) submit(kind string, task func(ctx context.Context) (string, error)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		var (
			filename string
			err      error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("render panicked: %v", r)
				}
			}()
			filename, err = task(ctx)
		}()

		d.metrics.ReportRendered(kind, err)
		if err != nil {
			d.logger.Error("report render failed", "kind", kind, "error", err)
			return
		}
		d.logger.Info("report rendered", "kind", kind, "filename", filename)
	}()
}
