// Package app wires configuration, storage, parsing and recurring processing
// into the operations shared by the CLI and the HTTP API.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tally-dev/tally/internal/activity"
	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/gitops"
	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/recurring"
	"github.com/tally-dev/tally/internal/scheduler"
	"github.com/tally-dev/tally/internal/store"
)

// Runtime holds the services for one data root.
type Runtime struct {
	Root       string
	Config     *config.Config
	Categories *category.Table
	Registry   *importer.Registry
	Store      store.Store
	Log        zerolog.Logger
	// Source tags activity log entries: "cli" or "api".
	Source string
	// Now is the clock. Nil uses time.Now.
	Now func() time.Time

	// processMu is shared by every Runner so the scheduler and on-demand
	// processing never load the same due template twice.
	processMu sync.Mutex
}

// Open loads tally.yaml (defaults when absent), the category table and the
// configured store for root. Logs go to logOut at the configured level.
func Open(root string, logOut io.Writer) (*Runtime, error) {
	cfg, err := config.LoadOrDefault(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	order, err := importer.ParseDateOrder(cfg.Import.DateOrder)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rules := cfg.Categories.File
	if rules != "" && !filepath.IsAbs(rules) {
		rules = filepath.Join(root, rules)
	}
	categories, err := category.LoadOrDefault(rules)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	st, err := store.Open(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &Runtime{
		Root:       root,
		Config:     cfg,
		Categories: categories,
		Registry:   importer.DefaultRegistry(importer.Options{Categories: categories, DateOrder: order}),
		Store:      st,
		Log:        logger.New(cfg.Log.Level, cfg.Log.Format, logOut),
		Source:     "cli",
	}, nil
}

// Close releases the store.
func (rt *Runtime) Close() error {
	return rt.Store.Close()
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

// Today is the current calendar day at midnight UTC.
func (rt *Runtime) Today() time.Time {
	return model.DateOnly(rt.now())
}

// UserTag returns user, or the configured default tag when user is empty.
func (rt *Runtime) UserTag(user string) string {
	if user != "" {
		return user
	}
	return rt.Config.Import.UserTag
}

// ImportReport describes one imported statement.
type ImportReport struct {
	File         string              `json:"file"`
	Format       string              `json:"format"`
	Transactions []model.Transaction `json:"transactions"`
	Skipped      int                 `json:"skipped"`
}

// ImportFile parses the statement at path and stores the transactions not
// already present. With dryRun nothing is written. Problems with the file
// itself are returned as a *StatementError.
func (rt *Runtime) ImportFile(ctx context.Context, path, user string, dryRun bool) (ImportReport, error) {
	report := ImportReport{File: filepath.Base(path), Format: importer.FormatForFile(path)}

	parsed, err := rt.Registry.ImportFile(path, rt.UserTag(user))
	if err != nil {
		return report, &StatementError{File: report.File, Err: err}
	}

	existing, err := rt.Store.Transactions(ctx)
	if err != nil {
		return report, fmt.Errorf("loading transactions: %w", err)
	}
	report.Transactions, report.Skipped = importer.Deduplicate(existing, parsed)
	if report.Transactions == nil {
		report.Transactions = []model.Transaction{}
	}

	log := logger.WithFields(rt.Log, map[string]any{"file": report.File, "format": report.Format})
	if dryRun {
		log.Info().Int("parsed", len(parsed)).Int("new", len(report.Transactions)).Msg("dry run, nothing stored")
		return report, nil
	}

	if err := rt.Store.AppendTransactions(ctx, report.Transactions); err != nil {
		return report, fmt.Errorf("storing transactions: %w", err)
	}
	log.Info().Int("stored", len(report.Transactions)).Int("skipped", report.Skipped).Msg("imported statement")

	rt.record(activity.Entry{
		Action:  activity.ActionImport,
		Subject: report.File,
		Count:   len(report.Transactions),
		Details: fmt.Sprintf("format=%s skipped=%d", report.Format, report.Skipped),
	})
	return report, nil
}

// ImportPending imports every statement waiting in <root>/import/ and moves
// each one to import/processed/ afterwards.
func (rt *Runtime) ImportPending(ctx context.Context, user string, dryRun bool) ([]ImportReport, error) {
	files, err := importer.Scan(rt.Root)
	if err != nil {
		return nil, err
	}

	var reports []ImportReport
	for _, f := range files {
		report, err := rt.ImportFile(ctx, f.Path, user, dryRun)
		if err != nil {
			return reports, fmt.Errorf("importing %s: %w", f.Name, err)
		}
		reports = append(reports, report)

		if !dryRun {
			if err := importer.MarkProcessed(rt.Root, f.Name); err != nil {
				return reports, err
			}
		}
	}
	return reports, nil
}

// AddTemplate validates t, assigns an ID when missing, caches its first due
// date and stores it. Validation problems are returned as a *ValidationError.
func (rt *Runtime) AddTemplate(ctx context.Context, t model.RecurringTemplate) (model.RecurringTemplate, error) {
	if problems := recurring.Validate(t); len(problems) > 0 {
		return t, &ValidationError{Problems: problems}
	}
	if t.ID == "" {
		t.ID = id.NewTemplateID()
	}
	t.StartDate = model.DateOnly(t.StartDate)
	next := recurring.NextDueDate(t)
	t.NextDueDate = &next

	if err := rt.Store.SaveTemplates(ctx, []model.RecurringTemplate{t}); err != nil {
		return t, fmt.Errorf("saving template: %w", err)
	}

	rt.Log.Info().Str("template", t.ID).Str("frequency", string(t.Frequency)).Msg("added recurring template")
	rt.record(activity.Entry{
		Action:  activity.ActionAddTemplate,
		Subject: t.ID,
		Count:   1,
		Details: fmt.Sprintf("%s %s %s", t.Template.Description, t.Template.Amount.StringFixed(2), t.Frequency),
	})
	return t, nil
}

// Upcoming previews template occurrences from today through the given number of days.
func (rt *Runtime) Upcoming(ctx context.Context, days int) ([]recurring.Occurrence, error) {
	templates, err := rt.Store.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	today := rt.Today()
	return recurring.Upcoming(templates, today, today.AddDate(0, 0, days)), nil
}

// Runner returns a recurring processor bound to this runtime's store. Runs
// of all runners from the same Runtime are serialized.
func (rt *Runtime) Runner(source string) *scheduler.Runner {
	return &scheduler.Runner{
		Store:    rt.Store,
		Log:      rt.Log,
		Interval: rt.Config.Recurring.Interval,
		Root:     rt.Root,
		Source:   source,
		Now:      rt.Now,
		Lock:     &rt.processMu,
	}
}

// Commit commits the data root when git auto-commit is enabled and the root
// is a repository. It returns the short hash, or "" when nothing was committed.
func (rt *Runtime) Commit(ctx context.Context, message string) (string, error) {
	if !rt.Config.Git.AutoCommit || !gitops.IsRepo(rt.Root) {
		return "", nil
	}
	hash, err := gitops.CommitAll(ctx, rt.Root, message, gitops.Author{
		Name:  rt.Config.Git.AuthorName,
		Email: rt.Config.Git.AuthorEmail,
	})
	if err != nil {
		return "", err
	}
	if hash != "" {
		rt.Log.Debug().Str("commit", hash).Msg(message)
	}
	return hash, nil
}

func (rt *Runtime) record(e activity.Entry) {
	e.Timestamp = rt.now()
	e.Source = rt.Source
	if err := activity.Append(rt.Root, []activity.Entry{e}); err != nil {
		rt.Log.Warn().Err(err).Str("action", e.Action).Msg("failed to write activity log")
	}
}
