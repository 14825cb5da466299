// Package scheduler periodically materializes due recurring templates.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tally-dev/tally/internal/activity"
	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/recurring"
	"github.com/tally-dev/tally/internal/store"
)

// DefaultInterval is how often Run processes templates when Interval is unset.
const DefaultInterval = time.Hour

// Runner loads templates from a Store, processes the due ones and writes the
// results back.
type Runner struct {
	Store    store.Store
	Log      zerolog.Logger
	Interval time.Duration
	// Root is the data root for the activity log. Empty disables it.
	Root string
	// Source tags activity log entries, e.g. "scheduler" or "cli".
	Source string
	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
	// AfterRun is called after a run that changed something.
	AfterRun func(ctx context.Context, res recurring.Result)
	// Lock serializes runs of every Runner sharing it. Nil uses a lock
	// private to this Runner.
	Lock sync.Locker

	mu sync.Mutex
}

// Run processes templates immediately and then every Interval until ctx is
// cancelled. Failed runs are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	r.Log.Info().Dur("interval", interval).Msg("recurring processor started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.Log.Error().Err(err).Msg("processing recurring templates")
		}

		select {
		case <-ctx.Done():
			r.Log.Info().Msg("recurring processor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce processes templates against the current date.
func (r *Runner) RunOnce(ctx context.Context) (recurring.Result, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.ProcessAt(ctx, now())
}

// ProcessAt processes templates against today and persists the outcome:
// materialized transactions are appended, then every template that changed
// is saved.
func (r *Runner) ProcessAt(ctx context.Context, today time.Time) (recurring.Result, error) {
	lock := r.Lock
	if lock == nil {
		lock = &r.mu
	}
	lock.Lock()
	defer lock.Unlock()

	templates, err := r.Store.Templates(ctx)
	if err != nil {
		return recurring.Result{}, fmt.Errorf("loading templates: %w", err)
	}

	res := recurring.ProcessDue(templates, today)
	if len(res.Materialized) == 0 && len(res.Deactivated) == 0 {
		r.Log.Debug().Int("templates", len(templates)).Msg("nothing due")
		return res, nil
	}

	stored, err := r.Store.Transactions(ctx)
	if err != nil {
		return res, fmt.Errorf("loading transactions: %w", err)
	}
	res.Materialized = unsaved(stored, res.Materialized)

	if err := r.Store.AppendTransactions(ctx, res.Materialized); err != nil {
		return res, fmt.Errorf("saving materialized transactions: %w", err)
	}
	if err := r.Store.SaveTemplates(ctx, changed(templates, res.Updated)); err != nil {
		return res, fmt.Errorf("saving templates: %w", err)
	}

	r.Log.Info().
		Int("materialized", len(res.Materialized)).
		Int("deactivated", len(res.Deactivated)).
		Time("today", today).
		Msg("processed recurring templates")

	if err := r.record(today, res); err != nil {
		r.Log.Warn().Err(err).Msg("writing activity log")
	}
	if r.AfterRun != nil {
		r.AfterRun(ctx, res)
	}
	return res, nil
}

func (r *Runner) record(today time.Time, res recurring.Result) error {
	if r.Root == "" {
		return nil
	}
	source := r.Source
	if source == "" {
		source = "scheduler"
	}

	var entries []activity.Entry
	for _, txn := range res.Materialized {
		entries = append(entries, activity.Entry{
			Timestamp: time.Now(),
			Source:    source,
			Action:    activity.ActionMaterialize,
			Subject:   txn.ID,
			Count:     1,
			Details:   fmt.Sprintf("%s %s on %s", txn.Description, txn.Amount.StringFixed(2), today.Format("2006-01-02")),
		})
	}
	for _, id := range res.Deactivated {
		entries = append(entries, activity.Entry{
			Timestamp: time.Now(),
			Source:    source,
			Action:    activity.ActionDeactivate,
			Subject:   id,
			Details:   "end date passed",
		})
	}
	return activity.Append(r.Root, entries)
}

// unsaved drops materializations whose template already has a stored
// transaction on the same date. A run that appended transactions but failed
// to save its templates leaves those behind for the next run to find.
func unsaved(stored, materialized []model.Transaction) []model.Transaction {
	type key struct {
		template string
		date     time.Time
	}
	seen := make(map[key]bool)
	for _, t := range stored {
		tpl, date, err := id.ParseMaterializedID(t.ID)
		if err != nil {
			continue
		}
		seen[key{tpl, date}] = true
	}

	var out []model.Transaction
	for _, t := range materialized {
		tpl, date, err := id.ParseMaterializedID(t.ID)
		if err == nil && seen[key{tpl, date}] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// changed returns the templates in updated that differ from before. ProcessDue
// keeps input order, so the slices line up by index.
func changed(before, updated []model.RecurringTemplate) []model.RecurringTemplate {
	var out []model.RecurringTemplate
	for i, t := range updated {
		if i >= len(before) || t.IsActive != before[i].IsActive || !sameDate(t.LastProcessed, before[i].LastProcessed) {
			out = append(out, t)
		}
	}
	return out
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
