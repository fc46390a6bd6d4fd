package quickadd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/storeops/inventory-expense/internal/database"
	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/repository"
)

func repositoryWriters(db database.PGXDB) Writers {
	return Writers{
		Expenses:    expense.NewService(repository.NewExpenseRepository(db), nil),
		Attachments: repository.NewAttachmentRepository(db),
	}
}

func countExpenses(t *testing.T, db database.PGXDB, companyID int64) int {
	t.Helper()
	var n int
	err := db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM expenses WHERE company_id = $1`, companyID).Scan(&n)
	require.NoError(t, err)
	return n
}

func countAttachments(t *testing.T, db database.PGXDB, name string) int {
	t.Helper()
	var n int
	err := db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM attachments WHERE name = $1`, name).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestPGXRunner(t *testing.T) {
	db := database.TestTx(t)
	ctx := context.Background()

	companyID, err := database.SeedCompany(ctx, db, "Quick Add Store", "USD")
	require.NoError(t, err)

	user := &models.User{ID: 222, Username: "receiver", FirstName: "Robin"}
	require.NoError(t, repository.NewUserRepository(db).UpsertUser(ctx, user))

	owner := Owner{UserID: user.ID, CompanyID: companyID, Currency: "USD"}
	up := Upload{Filename: "pgx-runner.png", Data: []byte("png bytes")}
	now := func() time.Time { return time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC) }

	t.Run("failure rolls back every write", func(t *testing.T) {
		failing := NewPGXRunner(db, func(tx database.PGXDB) Writers {
			w := repositoryWriters(tx)
			w.Attachments = failingOwner{AttachmentStore: w.Attachments}
			return w
		})
		svc := NewService(nil, nil, WithTx(failing), WithClock(now))

		_, err := svc.QuickAdd(ctx, up, owner)
		require.ErrorContains(t, err, "owner update refused")
		require.Zero(t, countExpenses(t, db, companyID))
		require.Zero(t, countAttachments(t, db, up.Filename))
	})

	t.Run("success commits expense and receipt", func(t *testing.T) {
		svc := NewService(nil, nil, WithTx(NewPGXRunner(db, repositoryWriters)), WithClock(now))

		outcome, err := svc.QuickAdd(ctx, up, owner)
		require.NoError(t, err)
		require.Equal(t, 1, countExpenses(t, db, companyID))
		require.Equal(t, 1, countAttachments(t, db, up.Filename))

		e, err := repository.NewExpenseRepository(db).GetByID(ctx, outcome.ExpenseID)
		require.NoError(t, err)
		require.NotNil(t, e.ReceiptAttachmentID)
	})
}

type failingOwner struct {
	AttachmentStore
}

func (failingOwner) SetOwner(context.Context, int64, string, int64) error {
	return errors.New("owner update refused")
}
