package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanskritiar/heritage/internal/achievement"
	"github.com/sanskritiar/heritage/internal/catalog"
	"github.com/sanskritiar/heritage/internal/errors"
	"github.com/sanskritiar/heritage/internal/event"
	"github.com/sanskritiar/heritage/internal/quiz"
	"github.com/sanskritiar/heritage/internal/rewards"
	"github.com/sanskritiar/heritage/internal/souvenir"
)

const (
	DefaultTTL           = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Session is one visitor's state: their coin ledger, achievement progress,
// quiz position and souvenir request. All of it lives in memory and dies with
// the session; nothing persists.
type Session struct {
	ID         string
	CreateTime time.Time

	Rewards      *rewards.Ledger
	Achievements *achievement.Tracker
	Quiz         *quiz.Engine
	Souvenir     *souvenir.Pipeline

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Config struct {
	EventBus *event.Bus
	Catalog  *catalog.Catalog

	Transport      souvenir.Transport
	SouvenirShape  souvenir.Shape
	PlaceholderURL string

	StartingBalance int
	QuizBonus       int
	QuizDwell       time.Duration

	TTL time.Duration
}

// Service owns the in-memory session registry.
type Service struct {
	c Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(c Config) *Service {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}

	return &Service{
		c:        c,
		sessions: make(map[string]*Session),
	}
}

// Create starts a fresh session with the catalog's initial state.
func (s *Service) Create(_ context.Context) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	var initialOwned []string
	for _, item := range s.c.Catalog.Souvenirs {
		if item.OwnedAtStart {
			initialOwned = append(initialOwned, item.ItemID)
		}
	}

	now := time.Now()
	ss := &Session{
		ID:         id.String(),
		CreateTime: now,
		lastSeen:   now,
	}

	ss.Rewards = rewards.NewLedger(rewards.Config{
		SessionID:       ss.ID,
		EventBus:        s.c.EventBus,
		StartingBalance: s.c.StartingBalance,
		InitialOwned:    initialOwned,
	})

	ss.Achievements = achievement.NewTracker(achievement.Config{
		SessionID: ss.ID,
		EventBus:  s.c.EventBus,
		Ledger:    ss.Rewards,
		Catalog:   s.c.Catalog.Achievements,
	})

	ss.Quiz = quiz.NewEngine(quiz.Config{
		SessionID: ss.ID,
		Ledger:    ss.Rewards,
		Questions: s.c.Catalog.Questions,
		Bonus:     s.c.QuizBonus,
		Dwell:     s.c.QuizDwell,
	})

	ss.Souvenir = souvenir.NewPipeline(souvenir.Config{
		SessionID:      ss.ID,
		EventBus:       s.c.EventBus,
		Transport:      s.c.Transport,
		Shape:          s.c.SouvenirShape,
		PlaceholderURL: s.c.PlaceholderURL,
	})

	s.mu.Lock()
	s.sessions[ss.ID] = ss
	s.mu.Unlock()

	return ss, nil
}

// Get returns the session and marks it as recently used.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	ss, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: %s", id))
	}

	ss.touch(time.Now())
	return ss, nil
}

// Delete discards a session and any pending quiz advance.
func (s *Service) Delete(id string) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		ss.Quiz.Stop()
	}
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep discards sessions idle for longer than the TTL until ctx is done.
// The server runs this alongside the HTTP listener.
func (s *Service) Sweep(ctx context.Context) error {
	t := time.NewTicker(defaultSweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			s.sweepOnce(ctx, now)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context, now time.Time) {
	var expired []*Session

	s.mu.Lock()
	for id, ss := range s.sessions {
		if now.Sub(ss.seen()) > s.c.TTL {
			delete(s.sessions, id)
			expired = append(expired, ss)
		}
	}
	s.mu.Unlock()

	for _, ss := range expired {
		ss.Quiz.Stop()
		slog.InfoContext(ctx, "session: expired", "session_id", ss.ID)
	}
}
