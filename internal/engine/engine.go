// Package engine wires the catalog, the index and the suggester behind the
// two entry points the presentation layer needs: Search and Suggest. It is
// also the application layer responsible for keeping the index in step with
// every canonical write.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/0xpix/hei-datahub/internal/catalog"
	"github.com/0xpix/hei-datahub/internal/index"
	"github.com/0xpix/hei-datahub/internal/suggest"
	"github.com/0xpix/hei-datahub/pkg/debounce"
	"github.com/0xpix/hei-datahub/pkg/query"
	"github.com/0xpix/hei-datahub/pkg/schema"
)

// DefaultDebounce is the quiet window for keystroke-driven requests.
const DefaultDebounce = 300 * time.Millisecond

// Engine owns the engine components for one catalog. The index handle is
// passed in explicitly; there is no ambient global connection.
type Engine struct {
	catalog   *catalog.Store
	index     *index.Store
	suggester *suggest.Suggester
	parser    *query.Parser
	log       *zap.Logger

	window       time.Duration
	searchSched  *debounce.Scheduler
	suggestSched *debounce.Scheduler
	searchGen    atomic.Uint64
	suggestGen   atomic.Uint64
}

// New assembles an engine. A zero window falls back to DefaultDebounce.
func New(cat *catalog.Store, idx *index.Store, reg *schema.Registry, log *zap.Logger, window time.Duration) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Engine{
		catalog:      cat,
		index:        idx,
		suggester:    suggest.New(reg, idx),
		parser:       query.NewParser(reg),
		log:          log,
		window:       window,
		searchSched:  debounce.NewScheduler(),
		suggestSched: debounce.NewScheduler(),
	}
}

// Search parses and executes a query immediately.
func (e *Engine) Search(ctx context.Context, text string, limit int) ([]index.RankedResult, error) {
	start := time.Now()
	results, err := e.index.Search(ctx, e.parser.Parse(text), limit)
	if err != nil {
		return nil, err
	}
	e.log.Debug("search executed",
		zap.String("query", text),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))
	return results, nil
}

// Suggest proposes at most one completion for a partial query.
func (e *Engine) Suggest(partial string) (*suggest.Suggestion, error) {
	return e.suggester.Suggest(partial)
}

// DebouncedSearch schedules a search for after the quiet window. Within the
// window the last call wins; a result that finishes executing after a newer
// request has been scheduled is discarded instead of delivered.
func (e *Engine) DebouncedSearch(text string, limit int, deliver func([]index.RankedResult, error)) {
	gen := e.searchGen.Add(1)
	e.searchSched.Schedule(e.window, func() {
		results, err := e.Search(context.Background(), text, limit)
		if e.searchGen.Load() != gen {
			return // superseded while executing; never show stale results
		}
		deliver(results, err)
	})
}

// DebouncedSuggest is the autocomplete counterpart of DebouncedSearch, on
// its own input stream.
func (e *Engine) DebouncedSuggest(partial string, deliver func(*suggest.Suggestion, error)) {
	gen := e.suggestGen.Add(1)
	e.suggestSched.Schedule(e.window, func() {
		sug, err := e.Suggest(partial)
		if e.suggestGen.Load() != gen {
			return
		}
		deliver(sug, err)
	})
}

// Upsert writes a record to the canonical store and synchronously updates
// the index, so an immediately following search observes the change.
func (e *Engine) Upsert(rec *catalog.Record) error {
	if err := e.catalog.Save(rec); err != nil {
		return err
	}
	return e.index.Upsert(rec)
}

// Delete removes a record from the canonical store and the index.
func (e *Engine) Delete(id string) error {
	if err := e.catalog.Delete(id); err != nil {
		return err
	}
	return e.index.Delete(id)
}

// Get returns the canonical record behind an identifier, nil if unknown.
func (e *Engine) Get(id string) (*catalog.Record, error) {
	return e.index.Get(id)
}

// Reindex rebuilds the whole index from the canonical cards. Unreadable
// cards and records the index rejected are reported together; the records
// that succeeded stay indexed either way.
func (e *Engine) Reindex() (int, []error) {
	records, errs := e.catalog.All()
	count, rebuildErrs := e.index.Rebuild(records)
	return count, append(errs, rebuildErrs...)
}

// Verify checks index storage integrity; a wrapped ErrIndexCorrupt means
// Reindex is the recovery path.
func (e *Engine) Verify() error {
	return e.index.Verify()
}

// Close stops pending debounced work. The index handle is closed by its
// owner, not here.
func (e *Engine) Close() {
	e.searchSched.Stop()
	e.suggestSched.Stop()
}
