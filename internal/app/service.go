// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pairwise/internal/adapters/repository"
	"github.com/okian/pairwise/internal/domain/calc"
	"github.com/okian/pairwise/internal/domain/catalog"
	"github.com/okian/pairwise/internal/domain/pairing"
	"github.com/okian/pairwise/internal/domain/session"
	"github.com/okian/pairwise/pkg/logger"
	"github.com/okian/pairwise/pkg/metrics"
)

// ModeRoundRobin labels the pairing strategy shown to users.
const ModeRoundRobin = "round_robin"

// ItemView is a catalog item as shown to clients.
type ItemView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PairView is the pair awaiting a decision.
type PairView struct {
	Index int      `json:"index"`
	Total int      `json:"total"`
	Left  ItemView `json:"left"`
	Right ItemView `json:"right"`
}

// StandingView is one ranked row.
type StandingView struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Games  int    `json:"games"`
}

// View is the client-facing snapshot of a session.
type View struct {
	SessionID string         `json:"sessionId"`
	Status    session.Status `json:"status"`
	Mode      string         `json:"mode"`
	Count     int            `json:"count"`
	K         float64        `json:"k"`
	PairIndex int            `json:"pairIndex"`
	Total     int            `json:"total"`
	Pair      *PairView      `json:"pair,omitempty"`
	Top       []StandingView `json:"top"`
	Final     []StandingView `json:"final,omitempty"`
}

// Service implements the API dependencies for ranking sessions and the calculator.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	catalog *catalog.Catalog
	locks   *keyedMutex
	rnd     pairing.Rand

	// Configuration
	k             float64
	initial       float64
	seed          int64
	ttl           time.Duration
	sweepInterval time.Duration
	topListSize   int
	backend       string

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	created     atomic.Int64
	fallbacks   atomic.Int64
	comparisons atomic.Int64
	completed   atomic.Int64
	calcs       atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the session store. Without it Start creates a MemoryStore.
func WithStore(store repository.Store, backend string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.backend = backend
		}
	}
}

// WithCatalog sets the items sessions compare.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithKFactor sets the K-factor for new sessions.
func WithKFactor(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithInitialRating sets the starting rating.
func WithInitialRating(r float64) Option {
	return func(s *Service) {
		s.initial = r
	}
}

// WithShuffleSeed seeds pair shuffling. Zero seeds from the clock.
func WithShuffleSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets the expiry sweep interval of the default memory store.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithTopListSize sets the size of the in-progress top list.
func WithTopListSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topListSize = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:       catalog.Default(),
		locks:         newKeyedMutex(),
		k:             24,
		initial:       1500,
		ttl:           24 * time.Hour,
		sweepInterval: time.Minute,
		topListSize:   12,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rnd = newLockedRand(s.seed)
	return s
}

// Start initializes the store and background metric updates.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithSweepInterval(s.sweepInterval))
		s.backend = repository.BackendMemory
	}

	s.wg.Add(1)
	go s.activeSessionsLoop(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ranking service started",
		logger.String("backend", s.backend),
		logger.Int("items", s.catalog.Len()),
		logger.Int("pairs", pairing.Count(s.catalog.Len())),
		logger.Float64("k", s.k),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping ranking service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing session store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

func (s *Service) activeSessionsLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n, err := s.store.Count(ctx); err == nil {
				metrics.UpdateActiveSessions(n)
			}
		}
	}
}

func (s *Service) sessionOptions() []session.Option {
	return []session.Option{
		session.WithK(s.k),
		session.WithInitialRating(s.initial),
		session.WithRand(s.rnd),
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// load returns the session for id, replacing unknown, expired or corrupt
// sessions with a fresh one.
func (s *Service) load(ctx context.Context, id string) (*session.Session, error) {
	ids := s.catalog.IDs()
	data, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return s.fresh(ctx, id, ids), nil
	}
	if err != nil {
		return nil, err
	}

	sess, err := session.Restore(data, ids, s.sessionOptions()...)
	if err != nil {
		s.fallbacks.Add(1)
		metrics.RecordSessionFallback()
		s.logger.Warn(ctx, "discarding unreadable session",
			logger.String("session", id),
			logger.Error(err),
		)
		return s.fresh(ctx, id, ids), nil
	}
	metrics.RecordSessionRestored()
	return sess, nil
}

func (s *Service) fresh(ctx context.Context, id string, ids []string) *session.Session {
	s.created.Add(1)
	metrics.RecordSessionCreated()
	s.logger.Debug(ctx, "new session", logger.String("session", id))
	return session.New(ids, s.sessionOptions()...)
}

func (s *Service) save(ctx context.Context, id string, sess *session.Session) error {
	data, err := sess.Marshal()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.store.Set(ctx, id, data, s.ttl)
}

// sessionID keeps a well-formed id and mints a new one otherwise.
func sessionID(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return uuid.NewString()
	}
	return id
}

// withSession runs fn under the session's lock and persists the result.
func (s *Service) withSession(ctx context.Context, id string, fn func(sess *session.Session) error) (string, *session.Session, error) {
	if err := s.ready(); err != nil {
		return "", nil, err
	}
	id = sessionID(id)
	release := s.locks.Lock(id)
	defer release()

	sess, err := s.load(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if fn != nil {
		if err := fn(sess); err != nil {
			return id, sess, err
		}
	}
	if err := s.save(ctx, id, sess); err != nil {
		return "", nil, err
	}
	return id, sess, nil
}

// View returns the session state, creating a session when needed.
func (s *Service) View(ctx context.Context, id string) (View, error) {
	id, sess, err := s.withSession(ctx, id, nil)
	if err != nil {
		return View{}, err
	}
	return s.view(id, sess), nil
}

// Choose records the user's answer for the pair at expectedIndex.
func (s *Service) Choose(ctx context.Context, id, choice string, expectedIndex int) (View, error) {
	outcome, err := session.ParseChoice(choice)
	if err != nil {
		return View{}, err
	}
	id, sess, err := s.withSession(ctx, id, func(sess *session.Session) error {
		if sess.Done() {
			return session.ErrComplete
		}
		if sess.PairIndex() != expectedIndex {
			metrics.RecordStaleChoice()
			return fmt.Errorf("%w: expected %d, current %d", ErrStaleChoice, expectedIndex, sess.PairIndex())
		}
		p, err := sess.Record(outcome)
		if err != nil {
			return err
		}
		s.comparisons.Add(1)
		metrics.RecordComparison(outcome.String())
		s.logger.Debug(ctx, "comparison recorded",
			logger.String("a", p[0]),
			logger.String("b", p[1]),
			logger.String("outcome", outcome.String()),
		)
		if sess.Done() {
			s.completed.Add(1)
			metrics.RecordSessionCompleted()
			s.logger.Info(ctx, "session complete", logger.Int("comparisons", sess.Count()))
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return s.view(id, sess), nil
}

// Reset deletes the stored session and starts a fresh one under the same id.
func (s *Service) Reset(ctx context.Context, id string) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	id = sessionID(id)
	release := s.locks.Lock(id)
	defer release()

	if err := s.store.Delete(ctx, id); err != nil {
		return View{}, fmt.Errorf("delete session: %w", err)
	}
	sess := s.fresh(ctx, id, s.catalog.IDs())
	if err := s.save(ctx, id, sess); err != nil {
		return View{}, err
	}
	metrics.RecordSessionReset()
	return s.view(id, sess), nil
}

// Export returns the full serialized session.
func (s *Service) Export(ctx context.Context, id string) (string, []byte, error) {
	var data []byte
	id, _, err := s.withSession(ctx, id, func(sess *session.Session) error {
		var err error
		data, err = sess.Export()
		return err
	})
	if err != nil {
		return "", nil, err
	}
	metrics.RecordExport()
	return id, data, nil
}

// Import merges payload into the session.
func (s *Service) Import(ctx context.Context, id string, payload []byte) (View, error) {
	id, sess, err := s.withSession(ctx, id, func(sess *session.Session) error {
		return sess.Import(payload)
	})
	if err != nil {
		metrics.RecordImport("rejected")
		return View{}, err
	}
	metrics.RecordImport("accepted")
	return s.view(id, sess), nil
}

// Standings returns the top n items of the session.
func (s *Service) Standings(ctx context.Context, id string, n int) (string, []StandingView, error) {
	var rows []StandingView
	id, _, err := s.withSession(ctx, id, func(sess *session.Session) error {
		top, err := sess.TopN(n)
		if err != nil {
			return err
		}
		rows = s.standingViews(top)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return id, rows, nil
}

// Catalog returns the items in declaration order.
func (s *Service) Catalog() []ItemView {
	items := s.catalog.Items()
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = ItemView{ID: it.ID, Name: it.Name, Description: it.Description}
	}
	return out
}

// calcUnsupportedLabel stands in for any op outside the supported set.
const calcUnsupportedLabel = "unsupported"

// Calculate performs one calculator operation.
func (s *Service) Calculate(ctx context.Context, a, b float64, op string) (calc.Result, error) {
	res, err := calc.Compute(a, b, calc.Op(op))
	s.calcs.Add(1)
	label := op
	if _, ok := calc.Op(op).Symbol(); !ok {
		label = calcUnsupportedLabel
	}
	if err != nil {
		metrics.RecordCalculation(label, "error")
		return calc.Result{}, err
	}
	metrics.RecordCalculation(label, "ok")
	return res, nil
}

func (s *Service) item(id string) ItemView {
	it, _ := s.catalog.Lookup(id)
	return ItemView{ID: it.ID, Name: it.Name, Description: it.Description}
}

func (s *Service) standingViews(top []session.Standing) []StandingView {
	out := make([]StandingView, len(top))
	for i, st := range top {
		it, _ := s.catalog.Lookup(st.ID)
		out[i] = StandingView{Rank: st.Rank, ID: st.ID, Name: it.Name, Rating: st.Rating, Games: st.Games}
	}
	return out
}

func (s *Service) view(id string, sess *session.Session) View {
	v := View{
		SessionID: id,
		Status:    sess.Status(),
		Mode:      ModeRoundRobin,
		Count:     sess.Count(),
		K:         sess.K(),
		PairIndex: sess.PairIndex(),
		Total:     sess.Total(),
	}
	if p, ok := sess.Current(); ok {
		v.Pair = &PairView{
			Index: sess.PairIndex(),
			Total: sess.Total(),
			Left:  s.item(p[0]),
			Right: s.item(p[1]),
		}
	}
	top, _ := sess.TopN(s.topListSize)
	v.Top = s.standingViews(top)
	if sess.Done() {
		all, _ := sess.TopN(s.catalog.Len())
		v.Final = s.standingViews(all)
	}
	return v
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"backend":         s.backend,
		"items":           s.catalog.Len(),
		"pairsPerSession": pairing.Count(s.catalog.Len()),
		"kFactor":         s.k,
		"sessionsCreated": s.created.Load(),
		"fallbacks":       s.fallbacks.Load(),
		"comparisons":     s.comparisons.Load(),
		"completed":       s.completed.Load(),
		"calculations":    s.calcs.Load(),
	}

	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		n, err := s.store.Count(ctx)
		if err != nil {
			stats["activeSessionsError"] = err.Error()
		} else {
			stats["activeSessions"] = n
			metrics.UpdateActiveSessions(n)
		}
	}
	return stats
}
