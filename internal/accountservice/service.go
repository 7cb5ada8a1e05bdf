// Package accountservice is the backend boundary the editing and forecasting
// layers talk to: account persistence, listings and simulation calls.
package accountservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/catalog"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/storage"
)

// Simulator runs the simulation engine; *engine.Client satisfies it.
type Simulator interface {
	Simulate(ctx context.Context, accounts []models.Account, portfolio string) (*models.ScenarioResult, error)
}

// Service coordinates storage, catalog and engine operations.
type Service struct {
	store  storage.Provider
	db     catalog.Catalog
	sim    Simulator
	logger *slog.Logger
}

// New creates a new account service.
func New(store storage.Provider, db catalog.Catalog, sim Simulator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, sim: sim, logger: logger}
}

// ListAccounts returns the names of all stored accounts, sorted.
func (s *Service) ListAccounts(_ context.Context) ([]string, error) {
	return s.db.Names()
}

// ListAccountsDetail returns every stored account, sorted by name.
func (s *Service) ListAccountsDetail(_ context.Context) ([]models.Account, error) {
	return s.db.Details()
}

// Summaries returns the catalog rows, optionally restricted to a tag.
func (s *Service) Summaries(_ context.Context, tag string) ([]catalog.AccountRow, error) {
	return s.db.List(tag)
}

// Tags returns the cash-flow tags in use with their account counts.
func (s *Service) Tags(_ context.Context) ([]catalog.TagCount, error) {
	return s.db.Tags()
}

// GetAccount loads one account from storage.
func (s *Service) GetAccount(_ context.Context, name string) (models.Account, error) {
	return s.store.Load(name)
}

// CashFlows returns the cash flows of a stored account.
func (s *Service) CashFlows(ctx context.Context, name string) ([]models.CashFlow, error) {
	a, err := s.GetAccount(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.CashFlows, nil
}

// ListPortfolios returns the portfolio names the engine can be asked to use.
func (s *Service) ListPortfolios(_ context.Context) ([]string, error) {
	return s.store.Portfolios()
}

// SaveAccount persists a and refreshes its catalog entry. It is the only
// write path for account content. Failures match apperr.ErrRemoteCall.
func (s *Service) SaveAccount(_ context.Context, a models.Account) error {
	if err := s.store.Save(a); err != nil {
		return apperr.Remote("accountservice: save", err)
	}
	data, err := s.store.Read(a.Name)
	if err != nil {
		return apperr.Remote("accountservice: save", err)
	}
	f := storage.FileInfo{Name: a.Name, Path: storage.FileName(a.Name), UpdatedAt: time.Now()}
	if err := catalog.Record(s.db, f, data); err != nil {
		return apperr.Remote("accountservice: catalog", err)
	}
	return nil
}

// CreateAccount saves a new account. It fails with apperr.ErrAlreadyExists
// when an account of that name is stored.
func (s *Service) CreateAccount(ctx context.Context, a models.Account) error {
	if err := storage.ValidName(a.Name); err != nil {
		return err
	}
	if s.store.Exists(a.Name) {
		return fmt.Errorf("accountservice: create %s: %w", a.Name, apperr.ErrAlreadyExists)
	}
	if a.CashFlows == nil {
		a.CashFlows = []models.CashFlow{}
	}
	return s.SaveAccount(ctx, a)
}

// AddCashFlow appends cf to a stored account and saves it.
func (s *Service) AddCashFlow(ctx context.Context, name string, cf models.CashFlow) (models.Account, error) {
	a, err := s.GetAccount(ctx, name)
	if err != nil {
		return models.Account{}, err
	}
	a.CashFlows = append(a.CashFlows, cf)
	if err := s.SaveAccount(ctx, a); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

// DeleteAccount removes an account from storage and catalog.
func (s *Service) DeleteAccount(_ context.Context, name string) error {
	if err := s.store.Delete(name); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return apperr.Remote("accountservice: delete", err)
	}
	if err := s.db.Delete(name); err != nil {
		return apperr.Remote("accountservice: delete", err)
	}
	return nil
}

// SimulateAccount runs the engine on one stored account. An empty portfolio
// means none.
func (s *Service) SimulateAccount(ctx context.Context, name, portfolio string) (models.SimulationResult, error) {
	a, err := s.GetAccount(ctx, name)
	if err != nil {
		return models.SimulationResult{}, err
	}
	res, err := s.sim.Simulate(ctx, []models.Account{a}, portfolio)
	if err != nil {
		return models.SimulationResult{}, err
	}
	out, ok := res.Get(a.Name)
	if !ok {
		return models.SimulationResult{}, apperr.Remote("accountservice: simulate",
			fmt.Errorf("no result for %q: %w", a.Name, apperr.ErrNotFound))
	}
	return out, nil
}

// SimulateScenario runs the engine on several stored accounts at once. The
// result lists accounts in the order of names; duplicates are simulated once.
func (s *Service) SimulateScenario(ctx context.Context, names []string) (*models.ScenarioResult, error) {
	out := models.NewScenarioResult()
	if len(names) == 0 {
		return out, nil
	}

	seen := make(map[string]struct{}, len(names))
	accounts := make([]models.Account, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		a, err := s.GetAccount(ctx, n)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	res, err := s.sim.Simulate(ctx, accounts, "")
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		r, ok := res.Get(a.Name)
		if !ok {
			s.logger.Warn("accountservice: engine returned no result", slog.String("account", a.Name))
			continue
		}
		out.Set(a.Name, r)
	}
	return out, nil
}
