package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/bot/mocks"
	"gitlab.com/storeops/inventory-expense/internal/config"
	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/quickadd"
	"gitlab.com/storeops/inventory-expense/internal/receipt"
	"gitlab.com/storeops/inventory-expense/internal/report"
	"gitlab.com/storeops/inventory-expense/internal/repository"
)

const (
	testChatID  = int64(5001)
	adminID     = int64(111)
	staffID     = int64(222)
	strangerID  = int64(999)
	testCompany = int64(1)
)

var testToday = time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC)

// memoryStore backs both the expense service and the report source.
type memoryStore struct {
	mu      sync.Mutex
	records map[int64]models.Expense
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]models.Expense), nextID: 1}
}

func (m *memoryStore) Create(_ context.Context, e *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID
	m.nextID++
	m.records[e.ID] = *e
	return nil
}

func (m *memoryStore) Update(_ context.Context, e *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[e.ID]; !ok {
		return repository.ErrNotFound
	}
	m.records[e.ID] = *e
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *memoryStore) ListByDateRange(_ context.Context, companyID int64, _, _ time.Time) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Expense
	for _, e := range m.records {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) ListNeedsReview(_ context.Context, companyID int64, _ int) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Expense
	for _, e := range m.records {
		if e.CompanyID == companyID && e.NeedsReview {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) SumByDateRange(_ context.Context, companyID int64, from, to time.Time) (repository.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := repository.Totals{TotalWithTax: decimal.Zero, TotalTax: decimal.Zero, TotalWithoutTax: decimal.Zero}
	for _, e := range m.records {
		if e.CompanyID != companyID || e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		t.Count++
		t.TotalWithTax = t.TotalWithTax.Add(e.TotalWithTax)
		t.TotalTax = t.TotalTax.Add(e.TaxAmount)
		t.TotalWithoutTax = t.TotalWithoutTax.Add(e.TotalWithoutTax)
	}
	return t, nil
}

type memoryAttachments struct {
	mu    sync.Mutex
	saved map[int64]*models.Attachment
}

func (m *memoryAttachments) Create(_ context.Context, a *models.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.saved) + 1)
	m.saved[a.ID] = a
	return nil
}

func (m *memoryAttachments) GetByID(_ context.Context, id int64) (*models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.saved[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *memoryAttachments) SetOwner(_ context.Context, id int64, resModel string, resID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.saved[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.ResModel, a.ResID = resModel, resID
	return nil
}

type memorySettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memorySettings) GetOr(_ context.Context, key, fallback string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func (m *memorySettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[int64]models.User
}

func (m *memoryUsers) UpsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *memoryUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// memoryChanges records what the expense service observes, stamped with the
// test clock.
type memoryChanges struct {
	mu      sync.Mutex
	changes []models.ExpenseChange
}

func (m *memoryChanges) RecordChanges(_ context.Context, expenseID, actor int64, changes []expense.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		m.changes = append(m.changes, models.ExpenseChange{
			ID:        int64(len(m.changes) + 1),
			ExpenseID: expenseID,
			Field:     c.Field,
			OldValue:  c.From,
			NewValue:  c.To,
			ChangedBy: actor,
			CreatedAt: testToday,
		})
	}
	return nil
}

func (m *memoryChanges) ListByExpense(_ context.Context, expenseID int64) ([]models.ExpenseChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExpenseChange
	for _, c := range m.changes {
		if c.ExpenseID == expenseID {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubExtractor struct {
	result *receipt.Result
	model  string
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string, mc receipt.ModelConfig) *receipt.Result {
	s.model = mc.Model
	return s.result
}

type testEnv struct {
	bot         *Bot
	tg          *mocks.MockBot
	store       *memoryStore
	attachments *memoryAttachments
	settings    *memorySettings
	users       *memoryUsers
	changes     *memoryChanges
	extractor   *stubExtractor
}

type envOption func(*envConfig)

type envConfig struct {
	withExtractor bool
	extractorErr  error
}

func withoutExtractor() envOption {
	return func(c *envConfig) { c.withExtractor = false }
}

// withExtractorError disables extraction the way a failed completer setup does.
func withExtractorError(err error) envOption {
	return func(c *envConfig) {
		c.withExtractor = false
		c.extractorErr = err
	}
}

// newTestEnv wires the bot to in-memory stores and serves receiptBody for
// every file download.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	ec := envConfig{withExtractor: true}
	for _, o := range opts {
		o(&ec)
	}

	env := &testEnv{
		tg:          mocks.NewMockBot(),
		store:       newMemoryStore(),
		attachments: &memoryAttachments{saved: make(map[int64]*models.Attachment)},
		settings:    &memorySettings{values: make(map[string]string)},
		users:       &memoryUsers{users: make(map[int64]models.User)},
		changes:     &memoryChanges{},
		extractor:   &stubExtractor{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("receipt image bytes"))
	}))
	t.Cleanup(srv.Close)
	env.tg.FileDownloadLinkToReturn = srv.URL + "/file"

	clock := func() time.Time { return testToday }
	expenses := expense.NewService(env.store, env.changes)

	qaOpts := []quickadd.Option{
		quickadd.WithClock(clock),
		quickadd.WithModel(env.settings, receipt.DefaultOpenAIModel),
	}
	if ec.withExtractor {
		qaOpts = append(qaOpts, quickadd.WithExtractor(env.extractor))
	}
	if ec.extractorErr != nil {
		qaOpts = append(qaOpts, quickadd.WithoutExtractor(ec.extractorErr))
	}

	cfg := &config.Config{
		WhitelistedUserIDs:   []int64{adminID},
		WhitelistedUsernames: []string{"staffer"},
	}
	env.bot = newBot(cfg, Deps{
		Company:      models.Company{ID: testCompany, Name: "Corner Store", Currency: "USD"},
		Users:        env.users,
		Expenses:     expenses,
		Queries:      env.store,
		History:      env.changes,
		Attachments:  env.attachments,
		Reports:      report.NewExporter(report.NewAggregator(env.store, nil), env.attachments, nil),
		QuickAdd:     quickadd.NewService(expenses, env.attachments, qaOpts...),
		Settings:     env.settings,
		DefaultModel: receipt.DefaultOpenAIModel,
	})
	env.bot.now = clock
	return env
}

func (env *testEnv) lastText(t *testing.T) string {
	t.Helper()
	msg := env.tg.LastSentMessage()
	if msg == nil {
		t.Fatal("no message sent")
	}
	return msg.Text
}

// seed stores a valid expense for the test company.
func (env *testEnv) seed(t *testing.T, name string, date time.Time, paid, subtotal string) *models.Expense {
	t.Helper()
	p := decimal.RequireFromString(paid)
	s := decimal.RequireFromString(subtotal)
	e, err := expense.New(expense.Input{
		Name:            name,
		Date:            date,
		TotalWithTax:    &p,
		TotalWithoutTax: &s,
		CompanyID:       testCompany,
		Currency:        "USD",
		CreatedBy:       adminID,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	if err := env.store.Create(context.Background(), e); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return e
}
