package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(t time.Time) *time.Time { return &t }

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{ID: "txn_1", Date: date(2024, 2, 3), Description: "Walmart", Amount: dec("-45.67"), Category: "Groceries", UserName: "alex"},
		{ID: "txn_2", Date: date(2024, 1, 20), Description: `Starbucks, "Main" St`, Amount: dec("-4.50"), Category: "Dining"},
		{ID: "txn_3", Date: date(2024, 2, 1), Description: "Salary", Amount: dec("2500"), Category: "Other", UserName: "sam"},
	}
}

func sampleTemplate() model.RecurringTemplate {
	return model.RecurringTemplate{
		ID: "rec_rent",
		Template: model.TransactionTemplate{
			Description: "Rent",
			Amount:      dec("-1250.00"),
			Category:    "Bills",
			UserName:    "alex",
		},
		Frequency: model.FrequencyMonthly,
		StartDate: date(2024, 1, 31),
		IsActive:  true,
	}
}

// backends runs fn against a fresh instance of every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		fn(t, NewFileStore(t.TempDir()))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "tally.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func assertSameTransaction(t *testing.T, want, got model.Transaction) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.Date.Equal(got.Date), "date: want %s got %s", want.Date, got.Date)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.Amount.Equal(got.Amount), "amount: want %s got %s", want.Amount, got.Amount)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.UserName, got.UserName)
}

func assertSameDate(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s got %s", want, got)
}

func TestStore_Empty(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		txns, err := s.Transactions(ctx)
		require.NoError(t, err)
		assert.Empty(t, txns)

		templates, err := s.Templates(ctx)
		require.NoError(t, err)
		assert.Empty(t, templates)
	})
}

func TestStore_AppendTransactions(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		in := sampleTransactions()

		require.NoError(t, s.AppendTransactions(ctx, in[:2]))
		require.NoError(t, s.AppendTransactions(ctx, in[2:]))

		got, err := s.Transactions(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)

		// Ordered by date.
		assertSameTransaction(t, in[1], got[0])
		assertSameTransaction(t, in[2], got[1])
		assertSameTransaction(t, in[0], got[2])
	})
}

func TestStore_SameDayKeepsInsertionOrder(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		in := []model.Transaction{
			{ID: "b", Date: date(2024, 3, 1), Description: "second", Amount: dec("-1")},
			{ID: "a", Date: date(2024, 3, 1), Description: "first", Amount: dec("-2")},
		}
		require.NoError(t, s.AppendTransactions(ctx, in))

		got, err := s.Transactions(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, "a", got[1].ID)
	})
}

func TestStore_SaveTemplatesUpserts(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rent := sampleTemplate()
		gym := sampleTemplate()
		gym.ID = "rec_gym"
		gym.Template.Description = "Gym"
		gym.Template.Amount = dec("-29.99")
		gym.Frequency = model.FrequencyWeekly
		gym.EndDate = ptr(date(2024, 12, 31))

		require.NoError(t, s.SaveTemplates(ctx, []model.RecurringTemplate{rent, gym}))

		rent.LastProcessed = ptr(date(2024, 2, 29))
		rent.NextDueDate = ptr(date(2024, 3, 29))
		rent.IsActive = false
		require.NoError(t, s.SaveTemplates(ctx, []model.RecurringTemplate{rent}))

		got, err := s.Templates(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)

		// Ordered by ID.
		assert.Equal(t, "rec_gym", got[0].ID)
		assert.Equal(t, "Gym", got[0].Template.Description)
		assert.True(t, dec("-29.99").Equal(got[0].Template.Amount))
		assert.Equal(t, model.FrequencyWeekly, got[0].Frequency)
		assertSameDate(t, gym.EndDate, got[0].EndDate)
		assert.Nil(t, got[0].LastProcessed)
		assert.True(t, got[0].IsActive)

		assert.Equal(t, "rec_rent", got[1].ID)
		assert.Equal(t, "Rent", got[1].Template.Description)
		assert.Equal(t, "Bills", got[1].Template.Category)
		assert.Equal(t, "alex", got[1].Template.UserName)
		assert.True(t, got[1].StartDate.Equal(date(2024, 1, 31)))
		assert.False(t, got[1].IsActive)
		assertSameDate(t, rent.LastProcessed, got[1].LastProcessed)
		assertSameDate(t, rent.NextDueDate, got[1].NextDueDate)
		assert.Nil(t, got[1].EndDate)
	})
}

func TestStore_CancelledContext(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, s.AppendTransactions(ctx, sampleTransactions()))
	})
}

func TestOpen(t *testing.T) {
	root := t.TempDir()

	cfg := config.Default("Home")
	s, err := Open(cfg, root)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	cfg.Storage.Driver = config.DriverSQLite
	s, err = Open(cfg, root)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(root, "tally.db"))

	cfg.Storage.Driver = "mongo"
	_, err = Open(cfg, root)
	assert.ErrorContains(t, err, "unknown storage driver")
}
