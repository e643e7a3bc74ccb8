// Package controller binds user edits, submits and service responses to the
// single search session of the application.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optimal-sites/planner/internal/config"
	"github.com/optimal-sites/planner/internal/criteria"
	"github.com/optimal-sites/planner/internal/models"
	"github.com/optimal-sites/planner/internal/recommender"
	"github.com/optimal-sites/planner/internal/search"
)

// OutcomeOK labels a successful resolution.
const OutcomeOK = "ok"

// ErrStopped is returned once the controller loop has exited.
var ErrStopped = errors.New("controller stopped")

// Searcher runs one search against the recommendation service.
type Searcher interface {
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Location, error)
}

// Observer is told about every search lifecycle event.
type Observer interface {
	SearchSubmitted(tag uint64)
	SearchResolved(tag uint64, outcome string, elapsed time.Duration)
	SearchDiscarded(tag uint64)
}

// Snapshot is a consistent view of the draft and the search state.
type Snapshot struct {
	Draft models.Draft
	State search.State
}

// Controller owns the draft and the search state. Every mutation runs on the
// goroutine executing Run; other goroutines post actions to it.
type Controller struct {
	searcher Searcher
	observer Observer
	logger   *zap.Logger
	required criteria.Fields
	timeout  time.Duration

	actions chan func(context.Context)
	stopped chan struct{}

	// Owned by the Run goroutine.
	draft        models.Draft
	machine      *search.Machine
	pendingSince time.Time
	subscribers  map[int]chan Snapshot
	nextSub      int
}

// New creates a controller. Call Run to start processing events.
func New(cfg *config.Config, searcher Searcher, observer Observer, logger *zap.Logger) (*Controller, error) {
	required, err := criteria.NewFields(cfg.RequiredFields...)
	if err != nil {
		return nil, fmt.Errorf("failed to read required fields: %w", err)
	}
	if observer == nil {
		observer = nopObserver{}
	}

	return &Controller{
		searcher:    searcher,
		observer:    observer,
		logger:      logger,
		required:    required,
		timeout:     cfg.RecommenderTimeout,
		actions:     make(chan func(context.Context)),
		stopped:     make(chan struct{}),
		machine:     search.NewMachine(),
		subscribers: make(map[int]chan Snapshot),
	}, nil
}

// Run processes events until ctx is done. Searches started by the
// controller inherit ctx.
func (c *Controller) Run(ctx context.Context) {
	defer func() {
		for id, ch := range c.subscribers {
			close(ch)
			delete(c.subscribers, id)
		}
		close(c.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.actions:
			fn(ctx)
		}
	}
}

// Edit applies a partial change to the draft and returns the result. Edits
// are not validated.
func (c *Controller) Edit(ctx context.Context, patch models.DraftPatch) (models.Draft, error) {
	var draft models.Draft
	err := c.do(ctx, func(context.Context) {
		c.draft = patch.Apply(c.draft)
		draft = c.draft
	})
	return draft, err
}

// SetContinent replaces the continent in the draft.
func (c *Controller) SetContinent(ctx context.Context, value string) error {
	_, err := c.Edit(ctx, models.DraftPatch{Continent: &value})
	return err
}

// SetPowerPlantType replaces the plant type in the draft.
func (c *Controller) SetPowerPlantType(ctx context.Context, value string) error {
	_, err := c.Edit(ctx, models.DraftPatch{PowerPlantType: &value})
	return err
}

// SetStartDate replaces the start date in the draft.
func (c *Controller) SetStartDate(ctx context.Context, value string) error {
	_, err := c.Edit(ctx, models.DraftPatch{StartDate: &value})
	return err
}

// SetEndDate replaces the end date in the draft.
func (c *Controller) SetEndDate(ctx context.Context, value string) error {
	_, err := c.Edit(ctx, models.DraftPatch{EndDate: &value})
	return err
}

// Draft returns the current draft.
func (c *Controller) Draft(ctx context.Context) (models.Draft, error) {
	var draft models.Draft
	err := c.do(ctx, func(context.Context) {
		draft = c.draft
	})
	return draft, err
}

// Submit validates the draft and, when it is valid, starts a search that
// supersedes any pending one. A *criteria.ValidationError leaves the search
// state untouched and sends nothing.
func (c *Controller) Submit(ctx context.Context) (search.Tag, error) {
	var (
		tag       search.Tag
		submitErr error
	)
	err := c.do(ctx, func(runCtx context.Context) {
		crit, err := criteria.Validate(c.draft, c.required)
		if err != nil {
			c.logger.Info("Rejected search draft", zap.Error(err))
			submitErr = err
			return
		}

		tag = c.machine.Submit(crit)
		c.pendingSince = time.Now()
		c.observer.SearchSubmitted(uint64(tag))
		c.logger.Info("Search submitted",
			zap.Uint64("tag", uint64(tag)),
			zap.String("continent", crit.Continent),
			zap.String("plant_type", string(crit.PowerPlantType)),
		)
		c.notify()

		go c.runSearch(runCtx, tag, crit)
	})
	if err != nil {
		return 0, err
	}
	return tag, submitErr
}

// Snapshot returns the draft and the search state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func(context.Context) {
		snap = c.snapshot()
	})
	return snap, err
}

// Subscribe returns a channel that receives the current snapshot right away
// and again after every state change. Slow readers only see the latest
// snapshot. The channel is closed by the returned cancel func or when the
// controller stops.
func (c *Controller) Subscribe(ctx context.Context) (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 1)
	var id int
	err := c.do(ctx, func(context.Context) {
		id = c.nextSub
		c.nextSub++
		c.subscribers[id] = ch
		ch <- c.snapshot()
	})
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.post(func(context.Context) {
				if sub, ok := c.subscribers[id]; ok {
					close(sub)
					delete(c.subscribers, id)
				}
			})
		})
	}
	return ch, cancel, nil
}

func (c *Controller) runSearch(ctx context.Context, tag search.Tag, crit models.SearchCriteria) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	locations, err := c.searcher.Search(ctx, crit)
	c.post(func(context.Context) {
		c.resolve(search.Resolution{Tag: tag, Locations: locations, Err: err})
	})
}

func (c *Controller) resolve(r search.Resolution) {
	if !c.machine.Resolve(r) {
		c.observer.SearchDiscarded(uint64(r.Tag))
		c.logger.Debug("Discarding stale search response",
			zap.Uint64("tag", uint64(r.Tag)),
			zap.Uint64("current_tag", uint64(search.TagOf(c.machine.Current()))),
		)
		return
	}

	outcome := OutcomeOK
	if r.Err != nil {
		outcome = recommender.Kind(r.Err)
		c.logger.Warn("Search failed", zap.Uint64("tag", uint64(r.Tag)), zap.String("kind", outcome), zap.Error(r.Err))
	} else {
		c.logger.Info("Search succeeded", zap.Uint64("tag", uint64(r.Tag)), zap.Int("locations", len(r.Locations)))
	}
	c.observer.SearchResolved(uint64(r.Tag), outcome, time.Since(c.pendingSince))
	c.notify()
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{Draft: c.draft, State: c.machine.Current()}
}

// notify hands the latest snapshot to every subscriber without blocking,
// replacing an unread older one.
func (c *Controller) notify() {
	snap := c.snapshot()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// do runs fn on the controller goroutine and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	action := func(runCtx context.Context) {
		defer close(done)
		fn(runCtx)
	}

	select {
	case c.actions <- action:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
	<-done
	return nil
}

// post queues fn on the controller goroutine without waiting.
func (c *Controller) post(fn func(context.Context)) {
	select {
	case c.actions <- fn:
	case <-c.stopped:
	}
}

type nopObserver struct{}

func (nopObserver) SearchSubmitted(uint64)                       {}
func (nopObserver) SearchResolved(uint64, string, time.Duration) {}
func (nopObserver) SearchDiscarded(uint64)                       {}
