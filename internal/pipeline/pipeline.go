// Package pipeline runs every configured source through fetch, diff, dispatch
// and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samvad-hq/rss-opinion/internal/differ"
	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
	"github.com/samvad-hq/rss-opinion/pkg/providers"
	"github.com/samvad-hq/rss-opinion/pkg/snapshots"
)

const defaultWorkers = 4

// Dispatcher publishes notifications for a source's new entries.
type Dispatcher interface {
	Dispatch(ctx context.Context, src domain.Source, entries []domain.Entry) domain.DispatchReport
}

// Pipeline processes sources with bounded parallelism.
type Pipeline struct {
	fetcher    providers.Fetcher
	store      snapshots.Store
	dispatcher Dispatcher
	workers    int
	log        logger.Logger
}

// New creates a Pipeline. workers <= 0 falls back to 4.
func New(fetcher providers.Fetcher, store snapshots.Store, dispatcher Dispatcher, workers int, log logger.Logger) *Pipeline {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Pipeline{
		fetcher:    fetcher,
		store:      store,
		dispatcher: dispatcher,
		workers:    workers,
		log:        logger.Ensure(log),
	}
}

// Run processes every source and returns one report per source in input
// order. A failing source never stops the others. Sources not started before
// ctx is cancelled are reported as fetch_failed.
func (p *Pipeline) Run(ctx context.Context, sources []domain.Source) domain.InvocationReport {
	out := make([]domain.SourceReport, len(sources))
	for i, src := range sources {
		out[i] = domain.SourceReport{
			Source:  src.Name,
			Outcome: domain.OutcomeFetchFailed,
			Errors:  []string{"not processed: invocation cancelled"},
		}
	}
	if len(sources) == 0 {
		return domain.InvocationReport{Sources: out}
	}

	workerCount := min(len(sources), p.workers)
	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go p.sourceWorker(ctx, sources, jobCh, out, &wg, workerID)
	}

	for idx := range sources {
		if ctx.Err() != nil {
			break
		}
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()

	rep := domain.InvocationReport{Sources: out}
	p.log.InfoObj("invocation finished", "run_done", map[string]any{
		"processed":   rep.Processed(),
		"failed":      rep.Failed(),
		"new_entries": rep.NewEntries(),
	})
	return rep
}

func (p *Pipeline) sourceWorker(
	ctx context.Context,
	sources []domain.Source,
	jobCh <-chan int,
	out []domain.SourceReport,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		src := sources[idx]
		p.log.DebugObj("processing source", "source_start", map[string]any{
			"worker_id": workerID,
			"source":    src.Name,
		})
		out[idx] = p.process(ctx, src)
	}
}

// process drives one source through its state machine.
func (p *Pipeline) process(ctx context.Context, src domain.Source) domain.SourceReport {
	rep := domain.SourceReport{Source: src.Name}

	fresh, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		p.log.ErrorObj("feed fetch failed", "fetch_error", map[string]any{
			"source": src.Name,
			"url":    src.FeedURL,
			"error":  err.Error(),
		})
		return failed(rep, domain.OutcomeFetchFailed, err)
	}

	raw, err := p.store.Latest(ctx, src.Key)
	if errors.Is(err, snapshots.ErrNotFound) {
		return p.bootstrap(ctx, src, fresh, rep)
	}
	if err != nil {
		p.log.ErrorObj("stored snapshot unreadable", "store_error", map[string]any{
			"source": src.Name,
			"key":    src.Key,
			"error":  err.Error(),
		})
		return failed(rep, domain.OutcomeStoreFailed, fmt.Errorf("load snapshot: %w", err))
	}

	stored, err := p.fetcher.Parse(src, raw)
	if err != nil {
		p.log.ErrorObj("stored snapshot unparsable", "store_error", map[string]any{
			"source": src.Name,
			"key":    src.Key,
			"error":  err.Error(),
		})
		return failed(rep, domain.OutcomeStoreFailed, fmt.Errorf("parse stored snapshot: %w", err))
	}

	newEntries := differ.Diff(fresh.Entries, stored.Entries)
	if len(newEntries) == 0 {
		p.log.InfoObj("no new entries", "no_changes", map[string]any{"source": src.Name})
		rep.Outcome = domain.OutcomeNoChanges
		return rep
	}

	p.log.InfoObj("new entries found", "new_entries", map[string]any{
		"source": src.Name,
		"count":  len(newEntries),
	})
	rep.NewEntries = len(newEntries)
	rep.Dispatch = p.dispatcher.Dispatch(ctx, src, newEntries)

	if err := p.store.Save(ctx, src.Key, fresh.Raw); err != nil {
		p.log.ErrorObj("snapshot persist failed, entries will be notified again", "persist_error", map[string]any{
			"source":  src.Name,
			"key":     src.Key,
			"entries": len(newEntries),
			"error":   err.Error(),
		})
		return failed(rep, domain.OutcomePersistFailed, fmt.Errorf("save snapshot: %w", err))
	}

	rep.Outcome = domain.OutcomeNewEntries
	rep.Persisted = true
	return rep
}

// bootstrap seeds storage for a source that has never been stored. Nothing is
// notified.
func (p *Pipeline) bootstrap(ctx context.Context, src domain.Source, fresh domain.Snapshot, rep domain.SourceReport) domain.SourceReport {
	if err := p.store.Save(ctx, src.Key, fresh.Raw); err != nil {
		p.log.ErrorObj("snapshot seed failed", "persist_error", map[string]any{
			"source": src.Name,
			"key":    src.Key,
			"error":  err.Error(),
		})
		return failed(rep, domain.OutcomePersistFailed, fmt.Errorf("seed snapshot: %w", err))
	}

	p.log.InfoObj("source bootstrapped", "bootstrap", map[string]any{
		"source":  src.Name,
		"entries": len(fresh.Entries),
	})
	rep.Outcome = domain.OutcomeBootstrapped
	rep.Persisted = true
	return rep
}

func failed(rep domain.SourceReport, outcome domain.SourceOutcome, err error) domain.SourceReport {
	rep.Outcome = outcome
	rep.Errors = append(rep.Errors, err.Error())
	return rep
}
