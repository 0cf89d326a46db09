// Package engine drives the batch geocoding loop: select pending rows,
// render queries, gate calls through the rate limiter, and persist results.
package engine

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sbscully/geocode-sqlite/internal/location"
	"github.com/sbscully/geocode-sqlite/internal/spatial"
	"github.com/sbscully/geocode-sqlite/internal/store"
	"github.com/sbscully/geocode-sqlite/pkg/geocode"
)

// Options configures a run.
type Options struct {
	Table   string
	Columns store.Columns
	Delay   float64 // seconds between outbound requests; 0 disables throttling
	BBox    *spatial.BoundingBox
	Force   bool // re-geocode rows that already have coordinates
	Limit   int  // max rows this run; <= 0 means all pending
}

// Summary aggregates the per-row outcomes of one run.
type Summary struct {
	Processed int
	Geocoded  int
	NotFound  int
	Failed    int
}

// Engine processes one table with one provider, strictly sequentially. The
// rate limiter belongs to the engine instance, not the process, so
// concurrent runs (and tests) do not interfere.
type Engine struct {
	store    store.Store
	provider geocode.Provider
	tmpl     *location.Template
	limiter  *rate.Limiter
	opts     Options
}

// New creates an engine for one run.
func New(st store.Store, provider geocode.Provider, tmpl *location.Template, opts Options) *Engine {
	limit := rate.NewLimiter(rate.Inf, 1)
	if opts.Delay > 0 {
		limit = rate.NewLimiter(rate.Every(time.Duration(opts.Delay*float64(time.Second))), 1)
	}
	return &Engine{
		store:    st,
		provider: provider,
		tmpl:     tmpl,
		limiter:  limit,
		opts:     opts,
	}
}

// Run executes the batch. Per-row failures are logged and counted but never
// abort the run; only context cancellation and datastore selection errors
// do. The returned summary is valid even alongside a non-nil error, covering
// the rows processed before interruption.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	log := zap.L().With(
		zap.String("provider", e.provider.Name()),
		zap.String("table", e.opts.Table),
	)

	if err := e.store.EnsureColumns(ctx, e.opts.Table, e.opts.Columns); err != nil {
		return nil, err
	}

	pending, err := e.store.CountPending(ctx, e.opts.Table, e.opts.Columns, e.opts.Force)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.SelectPending(ctx, e.opts.Table, e.opts.Columns, e.opts.Force, e.opts.Limit)
	if err != nil {
		return nil, err
	}

	log.Info("starting geocode run",
		zap.Int("pending", pending),
		zap.Int("candidates", len(rows)),
		zap.Float64("delay_secs", e.opts.Delay),
		zap.Bool("force", e.opts.Force),
	)

	bar := newProgressBar(len(rows), e.provider.Name())
	summary := &Summary{}

	for _, row := range rows {
		select {
		case <-ctx.Done():
			log.Warn("run interrupted", zap.Int("processed", summary.Processed))
			return summary, ctx.Err()
		default:
		}

		if err := e.processRow(ctx, log, row, summary); err != nil {
			log.Warn("run interrupted", zap.Int("processed", summary.Processed))
			return summary, err
		}
		summary.Processed++

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	log.Info("geocode run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("geocoded", summary.Geocoded),
		zap.Int("not_found", summary.NotFound),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// processRow runs the per-row pipeline: render, throttle, geocode, validate,
// persist. Outcomes land in the summary; coordinates stay null on anything
// but a validated match, so the row remains pending for the next run. Only
// cancellation during the rate-limit wait returns an error.
func (e *Engine) processRow(ctx context.Context, log *zap.Logger, row store.Row, summary *Summary) error {
	query := e.tmpl.Render(row.Values)
	if strings.TrimSpace(query) == "" {
		log.Debug("blank query, skipping", zap.Any("pk", row.ID))
		summary.NotFound++
		return nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return ctx.Err()
	}

	result, err := e.provider.Geocode(ctx, query)
	if err != nil {
		log.Warn("geocode failed",
			zap.Any("pk", row.ID),
			zap.String("query", query),
			zap.String("reason", geocode.Reason(err)),
			zap.Error(err),
		)
		summary.Failed++
		return nil
	}

	if !result.Matched {
		log.Debug("no match", zap.Any("pk", row.ID), zap.String("query", query))
		summary.NotFound++
		return nil
	}

	if !e.opts.BBox.Contains(result.Latitude, result.Longitude) {
		log.Debug("result outside bounding box",
			zap.Any("pk", row.ID),
			zap.Float64("lat", result.Latitude),
			zap.Float64("lng", result.Longitude),
		)
		summary.NotFound++
		return nil
	}

	upd := store.Update{
		ID:        row.ID,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		Geocoder:  e.provider.Name(),
	}
	if e.opts.Columns.Geometry != "" {
		geometry, geomErr := spatial.PointEWKB(result.Latitude, result.Longitude)
		if geomErr != nil {
			log.Warn("geometry encoding failed", zap.Any("pk", row.ID), zap.Error(geomErr))
			summary.Failed++
			return nil
		}
		upd.Geometry = geometry
	}

	if err := e.store.UpdateCoordinates(ctx, e.opts.Table, e.opts.Columns, upd); err != nil {
		log.Warn("persist failed", zap.Any("pk", row.ID), zap.Error(err))
		summary.Failed++
		return nil
	}

	summary.Geocoded++
	return nil
}

// newProgressBar returns a stderr progress bar when attached to a terminal,
// nil otherwise.
func newProgressBar(n int, provider string) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Geocoding via "+provider),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Err reports whether a finished run should be considered a failure for
// exit-code purposes.
func (s *Summary) Err() error {
	if s.Failed > 0 {
		return eris.Errorf("engine: %d of %d rows failed to geocode", s.Failed, s.Processed)
	}
	return nil
}
