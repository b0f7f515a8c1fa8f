package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"msp-toolkit/internal/model"
)

// DefaultFleetConcurrency bounds parallel client runs when none is configured.
const DefaultFleetConcurrency = 5

// ClientLister lists stored clients.
type ClientLister interface {
	List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, error)
}

// FleetResult is the outcome of one client's run within a fleet run.
type FleetResult struct {
	ClientID string               `json:"client_id"`
	Results  []*model.CheckResult `json:"results,omitempty"`
	Error    string               `json:"error,omitempty"`
	Code     string               `json:"code,omitempty"`
}

// Failed reports whether the client's run was aborted.
func (r *FleetResult) Failed() bool {
	return r.Error != ""
}

// Status returns the worst measured status of the client's results.
func (r *FleetResult) Status() model.CheckStatus {
	statuses := make([]model.CheckStatus, 0, len(r.Results))
	for _, res := range r.Results {
		statuses = append(statuses, res.Status)
	}
	return model.WorstStatus(statuses...)
}

// FleetRunner runs health checks for every active client.
type FleetRunner struct {
	engine      *Engine
	clients     ClientLister
	concurrency int
	logger      zerolog.Logger
}

// NewFleetRunner creates a FleetRunner.
func NewFleetRunner(engine *Engine, clients ClientLister, concurrency int, logger zerolog.Logger) *FleetRunner {
	if concurrency <= 0 {
		concurrency = DefaultFleetConcurrency
	}
	return &FleetRunner{
		engine:      engine,
		clients:     clients,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "fleet-runner").Logger(),
	}
}

// RunAll checks every active client concurrently. Non-empty kinds apply to
// every client; otherwise each client uses its stored enabled_checks, falling
// back to the default sequence. A failing client does not stop the others.
// Results are returned in client id order.
func (f *FleetRunner) RunAll(ctx context.Context, kinds []model.CheckKind) ([]*FleetResult, error) {
	clients, err := f.clients.List(ctx, model.ClientFilter{Status: model.ClientStatusActive})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	results := make([]*FleetResult, len(clients))
	if len(clients) == 0 {
		f.logger.Warn().Msg("no active clients to check")
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	var mu sync.Mutex
	failed := 0

	for i, client := range clients {
		g.Go(func() error {
			res := &FleetResult{ClientID: client.ID}
			checks, err := f.kindsFor(ctx, client.ID, kinds)
			if err == nil {
				res.Results, err = f.engine.RunCheckKinds(ctx, client.ID, checks)
			}
			if err != nil {
				res.Error = err.Error()
				res.Code = model.ErrorCode(err)
				f.logger.Warn().Err(err).Str("client_id", client.ID).Msg("client health run failed, continuing with others")

				mu.Lock()
				failed++
				mu.Unlock()
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fleet health run failed: %w", err)
	}

	f.logger.Info().
		Int("clients", len(clients)).
		Int("failed", failed).
		Int("concurrency", f.concurrency).
		Msg("fleet health run completed")

	return results, nil
}

func (f *FleetRunner) kindsFor(ctx context.Context, clientID string, requested []model.CheckKind) ([]model.CheckKind, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	return f.engine.EnabledChecks(ctx, clientID)
}
