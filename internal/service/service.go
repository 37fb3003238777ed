package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/punchamoorthee/bazaarops/internal/catalog"
	"github.com/punchamoorthee/bazaarops/internal/draw"
	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/store"
)

// Options tune the economy rules. Zero values fall back to the defaults
// the community runs with.
type Options struct {
	Location         *time.Location
	DailyDrawCount   int
	WeeklyTradeLimit int
	TradeTTL         time.Duration
	Now              func() time.Time
}

// Service is the card economy engine: draws, consolidation, discovery,
// trading, and the vault all run through it. Every inventory mutation it
// performs goes through the store's atomic apply primitive.
type Service struct {
	store   *store.Store
	catalog *catalog.Catalog
	engine  *draw.Engine

	loc         *time.Location
	dailyCount  int
	weeklyLimit int
	tradeTTL    time.Duration
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(st *store.Store, cat *catalog.Catalog, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DailyDrawCount == 0 {
		opts.DailyDrawCount = 3
	}
	if opts.WeeklyTradeLimit == 0 {
		opts.WeeklyTradeLimit = 3
	}
	if opts.TradeTTL == 0 {
		opts.TradeTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:       st,
		catalog:     cat,
		engine:      draw.NewEngine(cat),
		loc:         opts.Location,
		dailyCount:  opts.DailyDrawCount,
		weeklyLimit: opts.WeeklyTradeLimit,
		tradeTTL:    opts.TradeTTL,
		now:         opts.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Catalog exposes the loaded card registry for read endpoints.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// WeeklyTradeLimit is the configured cap on accepted trades per week.
func (s *Service) WeeklyTradeLimit() int {
	return s.weeklyLimit
}

func (s *Service) day() string {
	return models.Day(s.now(), s.loc)
}

func (s *Service) week() string {
	return models.Week(s.now(), s.loc)
}

// drawCards samples n catalog cards behind the shared rng lock.
func (s *Service) drawCards(n int) []models.Card {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.engine.Draw(s.rng, n)
}
