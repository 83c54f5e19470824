// Package batch drives many receipt generations sequentially, isolating
// failures per item and reporting cumulative progress.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/receipt"
	"github.com/patchlibrary/feedesk/internal/render"
)

const defaultDelay = 200 * time.Millisecond

// Item is one receipt generation task.
type Item struct {
	Student entity.StudentRecord
	Payment entity.PaymentRecord
}

// Generated is one successfully produced receipt. Index refers back to the
// input sequence.
type Generated struct {
	Index    int
	Document *entity.ReceiptDocument
	PDF      []byte
}

// ItemResult records the outcome for one input item.
type ItemResult struct {
	Index         int    `json:"index"`
	Student       string `json:"student"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	OK            bool   `json:"ok"`
	Err           string `json:"error,omitempty"`
}

// Stats aggregates one run.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunResult carries the successful documents in input order plus one
// ItemResult per input item, so callers never have to guess which items
// the succeeded count refers to.
type RunResult struct {
	Generated []Generated
	Results   []ItemResult
	Stats     Stats
}

// ProgressFunc receives the cumulative completed count after each success.
type ProgressFunc func(completed, total int)

// Orchestrator runs receipt generation over an ordered item sequence.
// Items never overlap in execution; a failed item never aborts the run.
type Orchestrator struct {
	composer *receipt.Composer
	renderer render.Renderer
	delay    time.Duration
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelay sets the pause between consecutive items. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.delay = d
		}
	}
}

func NewOrchestrator(composer *receipt.Composer, renderer render.Renderer, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		composer: composer,
		renderer: renderer,
		delay:    defaultDelay,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes items strictly in input order. Each item is composed and
// rendered; successes are appended to the output and reported through
// progress, failures are logged and recorded in Results. Cancelling ctx
// stops the run between items; the untouched remainder is recorded as
// failed with the context error.
func (o *Orchestrator) Run(ctx context.Context, items []Item, settings entity.ReceiptSettings, progress ProgressFunc) *RunResult {
	res := &RunResult{
		Results: make([]ItemResult, 0, len(items)),
		Stats:   Stats{Total: len(items)},
	}

	o.logger.Info("batch.start", "items", len(items), "delay_ms", o.delay.Milliseconds())
	completed := 0

	for i, item := range items {
		if i > 0 && o.delay > 0 {
			sleepCtx(ctx, o.delay)
		}
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				res.Results = append(res.Results, ItemResult{
					Index:   j,
					Student: items[j].Student.Name,
					Err:     err.Error(),
				})
				res.Stats.Failed++
			}
			o.logger.Warn("batch.canceled", "remaining", len(items)-i, "error", err)
			break
		}

		itemRes := ItemResult{Index: i, Student: item.Student.Name}

		doc, err := o.composer.Compose(item.Student, item.Payment, settings)
		if err == nil {
			itemRes.ReceiptNumber = doc.ReceiptNumber
			var pdf []byte
			if pdf, err = o.renderer.Render(ctx, doc); err == nil {
				res.Generated = append(res.Generated, Generated{Index: i, Document: doc, PDF: pdf})
				completed++
				res.Stats.Succeeded++
				itemRes.OK = true
				if progress != nil {
					progress(completed, len(items))
				}
			}
		}
		if err != nil {
			itemRes.Err = err.Error()
			res.Stats.Failed++
			o.logger.Error("batch.item.failed",
				"index", i,
				"student", item.Student.Name,
				"error", err)
		}
		res.Results = append(res.Results, itemRes)
	}

	o.logger.Info("batch.done",
		"total", res.Stats.Total,
		"succeeded", res.Stats.Succeeded,
		"failed", res.Stats.Failed)
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
