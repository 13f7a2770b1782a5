package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/sanskritiar/heritage/internal/api"
	"github.com/sanskritiar/heritage/internal/catalog"
	"github.com/sanskritiar/heritage/internal/event"
	"github.com/sanskritiar/heritage/internal/session"
	"github.com/sanskritiar/heritage/internal/souvenir"
	"github.com/sanskritiar/heritage/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Session struct {
		TTL             time.Duration
		StartingBalance int
	}

	Quiz struct {
		BonusCoins int
		Dwell      time.Duration
	}

	Souvenir struct {
		WebhookURL     string
		Encoding       string
		BearerToken    string
		Timeout        time.Duration
		PlaceholderURL string

		Style       bool
		Monument    bool
		IncludeLogo bool
	}

	Catalog struct {
		QuestionsFile    string
		AchievementsFile string
		SouvenirsFile    string
		MonumentsFile    string
		ArtisansFile     string
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			pubsub redis.UniversalClient
		}
	}

	catalog *catalog.Catalog

	service struct {
		session *session.Service
	}

	http *http.Server

	cancelSweep context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Pubsub.Addrs,
		Password: s.c.Redis.Pubsub.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	s.infra.redis.pubsub = r
	return nil
}

func (s *Server) initService() error {
	c, err := catalog.Load(catalog.Overrides{
		QuestionsFile:    s.c.Catalog.QuestionsFile,
		AchievementsFile: s.c.Catalog.AchievementsFile,
		SouvenirsFile:    s.c.Catalog.SouvenirsFile,
		MonumentsFile:    s.c.Catalog.MonumentsFile,
		ArtisansFile:     s.c.Catalog.ArtisansFile,
	})
	if err != nil {
		return err
	}
	s.catalog = c

	transport, err := souvenir.NewWebhookTransport(souvenir.WebhookConfig{
		URL:         s.c.Souvenir.WebhookURL,
		Encoding:    s.c.Souvenir.Encoding,
		BearerToken: s.c.Souvenir.BearerToken,
		Timeout:     s.c.Souvenir.Timeout,
	})
	if err != nil {
		return err
	}

	s.service.session = session.NewService(session.Config{
		EventBus: s.eb,
		Catalog:  c,

		Transport: transport,
		SouvenirShape: souvenir.Shape{
			Style:       s.c.Souvenir.Style,
			Monument:    s.c.Souvenir.Monument,
			IncludeLogo: s.c.Souvenir.IncludeLogo,
		},
		PlaceholderURL: s.c.Souvenir.PlaceholderURL,

		StartingBalance: s.c.Session.StartingBalance,
		QuizBonus:       s.c.Quiz.BonusCoins,
		QuizDwell:       s.c.Quiz.Dwell,

		TTL: s.c.Session.TTL,
	})

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.GinLogger())

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Sessions:     s.service.session,
		Catalog:      s.catalog,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSweep = cancel

	var eg errgroup.Group
	eg.Go(func() error {
		return s.service.session.Sweep(ctx)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		cancel()
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	if s.cancelSweep != nil {
		s.cancelSweep()
	}

	s.eb.Stop()

	if err := s.infra.redis.pubsub.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
