package listsync

import (
	"context"
	"errors"
	"sync"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"go.uber.org/zap"
)

const (
	fallbackMomentsError = "Failed to retrieve moments"
	fallbackTotalError   = "Failed to retrieve info"
)

var errMissingSource = errors.New("listsync: moment source required")

// Source is the remote collection the controller mirrors.
type Source interface {
	TotalMoments(ctx context.Context) (int64, error)
	ListMoments(ctx context.Context, query moments.ListQuery) ([]moments.Summary, error)
}

// Snapshot is an immutable view of the controller state.
type Snapshot struct {
	Query        moments.ListQuery
	MaxPages     int
	Loading      bool
	Moments      []moments.Summary
	MomentsError string
	TotalMoments *int64
	TotalError   string
}

// Config describes the dependencies of a Controller.
type Config struct {
	Source   Source
	Logger   *zap.Logger
	Notifier *Notifier
}

// Controller owns the pagination, sort and search state of the moment list
// and reconciles it with the remote collection on Refresh.
//
// Every retrieval is tagged with a per-slot generation and the query at
// dispatch time; only the response to the latest dispatch for an unchanged
// query is applied.
type Controller struct {
	source   Source
	logger   *zap.Logger
	notifier *Notifier

	mu              sync.Mutex
	query           moments.ListQuery
	maxPages        int
	loading         bool
	summaries       []moments.Summary
	momentsError    string
	total           *int64
	totalError      string
	pageGeneration  uint64
	totalGeneration uint64
}

// NewController returns a Controller in the loading state with the default query.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Source == nil {
		return nil, errMissingSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &Controller{
		source:    cfg.Source,
		logger:    logger,
		notifier:  notifier,
		query:     moments.DefaultListQuery(),
		loading:   true,
		summaries: []moments.Summary{},
	}, nil
}

// SetPageSize selects a page size and returns to the first page.
func (c *Controller) SetPageSize(size int) error {
	if err := moments.ValidatePageSize(size); err != nil {
		return err
	}
	c.mu.Lock()
	c.query.PageSize = size
	c.query.CurrentPage = 1
	c.mu.Unlock()
	return nil
}

// SetSortBy selects a sort key and returns to the first page.
func (c *Controller) SetSortBy(key moments.SortKey) error {
	parsed, err := moments.ParseSortKey(string(key))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.query.SortBy = parsed
	c.query.CurrentPage = 1
	c.mu.Unlock()
	return nil
}

// SetSearchText sets the title filter and returns to the first page. The
// text is kept as entered; matching is up to the remote service.
func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	c.query.SearchText = text
	c.query.CurrentPage = 1
	c.mu.Unlock()
}

// GoToPage moves to page n. Requests outside [1, maxPages] are ignored and
// reported as false.
func (c *Controller) GoToPage(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 || n > c.maxPages {
		return false
	}
	c.query.CurrentPage = n
	return true
}

// Query returns the current list query.
func (c *Controller) Query() moments.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe streams a snapshot every time a retrieval result is applied.
func (c *Controller) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	return c.notifier.Subscribe(ctx)
}

// Refresh dispatches the total-count and page retrievals concurrently. The
// returned channel is closed once both have settled.
func (c *Controller) Refresh(ctx context.Context) <-chan struct{} {
	c.mu.Lock()
	c.totalGeneration++
	totalGeneration := c.totalGeneration
	c.pageGeneration++
	pageGeneration := c.pageGeneration
	query := c.query
	c.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.retrieveTotal(ctx, totalGeneration)
	}()
	go func() {
		defer wg.Done()
		c.retrievePage(ctx, pageGeneration, query)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// RefreshAndWait runs Refresh and blocks until it settles or ctx is done.
func (c *Controller) RefreshAndWait(ctx context.Context) Snapshot {
	select {
	case <-c.Refresh(ctx):
	case <-ctx.Done():
	}
	return c.Snapshot()
}

func (c *Controller) retrieveTotal(ctx context.Context, generation uint64) {
	total, err := c.source.TotalMoments(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}

	c.mu.Lock()
	if generation != c.totalGeneration {
		c.mu.Unlock()
		c.logger.Debug("discarding stale total count", zap.Uint64("generation", generation))
		return
	}
	if err != nil {
		c.totalError = apiclient.Message(err, fallbackTotalError)
	} else {
		c.total = &total
		c.totalError = ""
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("total count retrieval failed", zap.Error(err))
	}
	c.notifier.Publish(snapshot)
}

func (c *Controller) retrievePage(ctx context.Context, generation uint64, query moments.ListQuery) {
	summaries, err := c.source.ListMoments(ctx, query)
	if errors.Is(err, context.Canceled) {
		return
	}

	c.mu.Lock()
	if generation != c.pageGeneration || query != c.query {
		c.mu.Unlock()
		c.logger.Debug("discarding stale moment page",
			zap.Uint64("generation", generation),
			zap.Int("current_page", query.CurrentPage))
		return
	}
	if err != nil {
		c.momentsError = apiclient.Message(err, fallbackMomentsError)
	} else {
		c.summaries = append([]moments.Summary{}, summaries...)
		c.momentsError = ""
		c.maxPages = pageCount(len(summaries), query.PageSize)
	}
	c.loading = false
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("moment page retrieval failed", zap.Error(err))
	}
	c.notifier.Publish(snapshot)
}

func (c *Controller) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Query:        c.query,
		MaxPages:     c.maxPages,
		Loading:      c.loading,
		Moments:      append([]moments.Summary{}, c.summaries...),
		MomentsError: c.momentsError,
		TotalError:   c.totalError,
	}
	if c.total != nil {
		total := *c.total
		snapshot.TotalMoments = &total
	}
	return snapshot
}

// pageCount derives the number of pages from the size of the returned page.
func pageCount(resultCount, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (resultCount + pageSize - 1) / pageSize
}
