package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/app"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/recurring"
)

const dateLayout = "2006-01-02"

// handleImport handles POST /api/import with a multipart "file" and optional "user".
func (s *Server) handleImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "no file uploaded, use form field 'file'")
	}

	name := filepath.Base(fh.Filename)
	if importer.FormatForFile(name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported statement file %s", name))
	}

	dir, err := os.MkdirTemp("", "tally-upload-*")
	if err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := c.SaveFile(fh, path); err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}

	report, err := s.rt.ImportFile(c.UserContext(), path, c.FormValue("user"), c.QueryBool("dryRun"))
	var serr *app.StatementError
	if errors.As(err, &serr) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, serr.Error())
	}
	if err != nil {
		return err
	}
	if _, err := s.rt.Commit(c.UserContext(), "import "+name); err != nil {
		log := logger.FromContext(c.UserContext())
		log.Warn().Err(err).Msg("auto-commit failed")
	}

	return c.JSON(fiber.Map{
		"file":         report.File,
		"format":       report.Format,
		"transactions": report.Transactions,
		"count":        len(report.Transactions),
		"skipped":      report.Skipped,
	})
}

// handleTransactions handles GET /api/transactions with optional from, to,
// category and user filters.
func (s *Server) handleTransactions(c *fiber.Ctx) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	cat := c.Query("category")
	user := c.Query("user")

	all, err := s.rt.Store.Transactions(c.UserContext())
	if err != nil {
		return err
	}

	txns := []model.Transaction{}
	for _, t := range all {
		if !from.IsZero() && t.Date.Before(from) {
			continue
		}
		if !to.IsZero() && t.Date.After(to) {
			continue
		}
		if cat != "" && !strings.EqualFold(t.Category, cat) {
			continue
		}
		if user != "" && t.UserName != user {
			continue
		}
		txns = append(txns, t)
	}

	return c.JSON(fiber.Map{
		"transactions": txns,
		"count":        len(txns),
	})
}

func (s *Server) handleListTemplates(c *fiber.Ctx) error {
	templates, err := s.rt.Store.Templates(c.UserContext())
	if err != nil {
		return err
	}
	if templates == nil {
		templates = []model.RecurringTemplate{}
	}
	return c.JSON(fiber.Map{
		"templates": templates,
		"count":     len(templates),
	})
}

// templateRequest is the body of POST /api/recurring.
type templateRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	UserName    string `json:"userName"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func (r templateRequest) template() (model.RecurringTemplate, []string) {
	var problems []string
	t := model.RecurringTemplate{
		Template: model.TransactionTemplate{
			Description: strings.TrimSpace(r.Description),
			Category:    strings.TrimSpace(r.Category),
			UserName:    strings.TrimSpace(r.UserName),
		},
		Frequency: model.Frequency(strings.ToLower(strings.TrimSpace(r.Frequency))),
		IsActive:  true,
	}

	if r.Amount != "" {
		amt, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
		if err != nil {
			problems = append(problems, fmt.Sprintf("amount %q is not a number", r.Amount))
		}
		t.Template.Amount = amt
	}
	if r.StartDate != "" {
		d, err := time.Parse(dateLayout, r.StartDate)
		if err != nil {
			problems = append(problems, fmt.Sprintf("start date %q must be YYYY-MM-DD", r.StartDate))
		}
		t.StartDate = d
	}
	if r.EndDate != "" {
		d, err := time.Parse(dateLayout, r.EndDate)
		if err != nil {
			problems = append(problems, fmt.Sprintf("end date %q must be YYYY-MM-DD", r.EndDate))
		} else {
			t.EndDate = &d
		}
	}
	return t, problems
}

// handleCreateTemplate handles POST /api/recurring. Invalid templates get a
// 400 with {"errors": [...]}.
func (s *Server) handleCreateTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	t, problems := req.template()
	if len(problems) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": problems})
	}

	saved, err := s.rt.AddTemplate(c.UserContext(), t)
	var verr *app.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": verr.Problems})
	}
	if err != nil {
		return err
	}
	if _, err := s.rt.Commit(c.UserContext(), "add recurring template "+saved.ID); err != nil {
		log := logger.FromContext(c.UserContext())
		log.Warn().Err(err).Msg("auto-commit failed")
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

// handleProcess handles POST /api/recurring/process. The optional "today"
// query parameter overrides the processing date.
func (s *Server) handleProcess(c *fiber.Ctx) error {
	today, err := queryDate(c, "today")
	if err != nil {
		return err
	}
	if today.IsZero() {
		today = s.rt.Today()
	}

	res, err := s.rt.Runner("api").ProcessAt(c.UserContext(), today)
	if err != nil {
		return err
	}
	if len(res.Materialized) > 0 || len(res.Deactivated) > 0 {
		if _, err := s.rt.Commit(c.UserContext(), "process recurring templates"); err != nil {
			log := logger.FromContext(c.UserContext())
			log.Warn().Err(err).Msg("auto-commit failed")
		}
	}

	materialized := res.Materialized
	if materialized == nil {
		materialized = []model.Transaction{}
	}
	deactivated := res.Deactivated
	if deactivated == nil {
		deactivated = []string{}
	}
	return c.JSON(fiber.Map{
		"date":         today.Format(dateLayout),
		"materialized": materialized,
		"deactivated":  deactivated,
	})
}

// handleUpcoming handles GET /api/recurring/upcoming?days=N (default 30).
func (s *Server) handleUpcoming(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "days must not be negative")
	}
	occ, err := s.rt.Upcoming(c.UserContext(), days)
	if err != nil {
		return err
	}
	if occ == nil {
		occ = []recurring.Occurrence{}
	}
	return c.JSON(fiber.Map{
		"occurrences": occ,
		"count":       len(occ),
	})
}

func (s *Server) handleSuggest(c *fiber.Ctx) error {
	desc := strings.TrimSpace(c.Query("description"))
	if desc == "" {
		return fiber.NewError(fiber.StatusBadRequest, "description is required")
	}
	return c.JSON(fiber.Map{
		"description": desc,
		"category":    s.rt.Categories.Categorize(desc),
		"categories":  s.rt.Categories.Names(),
	})
}

func queryDate(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", key))
	}
	return d, nil
}
