package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sanskritiar/heritage/internal/catalog"
	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/errors"
	"github.com/sanskritiar/heritage/internal/event"
	"github.com/sanskritiar/heritage/internal/session"
	"github.com/sanskritiar/heritage/internal/souvenir"
)

// maxPhotoFormBytes caps how much of an uploaded photo is read. Slightly
// above the pipeline's 5 MiB limit so oversized uploads are rejected with a
// proper validation error instead of being silently truncated.
const maxPhotoFormBytes = 5<<20 + 1

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Sessions     *session.Service
	Catalog      *catalog.Catalog
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	sessions *session.Service
	catalog  *catalog.Catalog

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		sessions: c.Sessions,
		catalog:  c.Catalog,
		redis:    c.Redis,
		prefix:   c.PubsubPrefix,
	}

	v1 := c.Router.Group("/api/v1")

	v1.POST("/sessions", a.createSession)
	v1.DELETE("/sessions/:sid", a.deleteSession)

	v1.GET("/sessions/:sid/rewards", a.getRewards)
	v1.POST("/sessions/:sid/rewards/purchases", a.purchase)

	v1.GET("/sessions/:sid/achievements", a.listAchievements)
	v1.POST("/sessions/:sid/achievements/:aid/progress", a.recordProgress)

	v1.GET("/sessions/:sid/quiz", a.currentQuestion)
	v1.POST("/sessions/:sid/quiz/answers", a.submitAnswer)

	v1.POST("/sessions/:sid/souvenir", a.submitSouvenir)
	v1.GET("/sessions/:sid/souvenir", a.getSouvenir)
	v1.GET("/sessions/:sid/souvenir/download", a.downloadSouvenir)
	v1.POST("/sessions/:sid/souvenir/reset", a.resetSouvenir)

	v1.GET("/catalog/monuments", a.listMonuments)
	v1.GET("/catalog/artisans", a.listArtisans)

	// Push ledger/achievement/souvenir changes to the session's channel.
	c.EventBus.Subscribe(domain.EventNameCoinsCredited, func(ctx context.Context, e event.Event) error {
		return a.publishCoinsCredited(ctx, e.(domain.EventCoinsCredited))
	})
	c.EventBus.Subscribe(domain.EventNameSouvenirPurchased, func(ctx context.Context, e event.Event) error {
		return a.publishSouvenirPurchased(ctx, e.(domain.EventSouvenirPurchased))
	})
	c.EventBus.Subscribe(domain.EventNameAchievementCompleted, func(ctx context.Context, e event.Event) error {
		return a.publishAchievementCompleted(ctx, e.(domain.EventAchievementCompleted))
	})
	c.EventBus.Subscribe(domain.EventNameSouvenirGenerated, func(ctx context.Context, e event.Event) error {
		return a.publishSouvenirGenerated(ctx, e.(domain.EventSouvenirGenerated))
	})

	return a
}

func (a *API) createSession(c *gin.Context) {
	ss, err := a.sessions.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": ss.ID,
		"balance":    ss.Rewards.Balance(),
	})
}

func (a *API) deleteSession(c *gin.Context) {
	a.sessions.Delete(c.Param("sid"))
	c.Status(http.StatusNoContent)
}

func (a *API) getRewards(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	balance, owned := ss.Rewards.Snapshot()

	items := make([]souvenirItemView, 0, len(a.catalog.Souvenirs))
	for _, item := range a.catalog.Souvenirs {
		items = append(items, souvenirItemView{
			ItemID:      item.ItemID,
			Title:       item.Title,
			Description: item.Description,
			Cost:        item.Cost,
			Kind:        item.Kind,
			Owned:       ss.Rewards.Owns(item.ItemID),
			Affordable:  balance >= item.Cost,
		})
	}

	c.JSON(http.StatusOK, rewardsView{
		Balance: balance,
		Owned:   owned,
		Items:   items,
	})
}

func (a *API) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	item, ok := a.findSouvenirItem(req.ItemID)
	if !ok {
		respondError(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("unknown souvenir item: %s", req.ItemID)))
		return
	}

	if err := ss.Rewards.Purchase(c.Request.Context(), item.ItemID, item.Cost); err != nil {
		respondError(c, err)
		return
	}

	balance, owned := ss.Rewards.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
		"owned":   owned,
	})
}

func (a *API) listAchievements(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements": achievementViews(ss),
	})
}

func (a *API) recordProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}
	if req.Delta <= 0 {
		respondError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("delta must be positive")))
		return
	}

	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	id := c.Param("aid")
	if !ss.Achievements.Known(id) {
		respondError(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("unknown achievement: %s", id)))
		return
	}

	progress := ss.Achievements.RecordProgress(c.Request.Context(), id, req.Delta)
	c.JSON(http.StatusOK, achievementView(progress, ss.Rewards.Balance()))
}

func (a *API) currentQuestion(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	v := ss.Quiz.Current()
	c.JSON(http.StatusOK, quizView{
		QuestionID: v.QuestionID,
		Question:   v.QuestionText,
		Options:    v.Options,
		Index:      v.Index,
		Total:      v.Total,
		Revealed:   v.Revealed,
	})
}

func (a *API) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	r, err := ss.Quiz.SubmitAnswer(c.Request.Context(), req.OptionIndex)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answerView{
		Accepted:     r.Accepted,
		Correct:      r.Correct,
		CorrectIndex: r.CorrectIndex,
		Fact:         r.Fact,
		CoinsAwarded: r.CoinsAwarded,
		Balance:      r.Balance,
	})
}

func (a *API) submitSouvenir(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	details := souvenir.Details{
		Name:     c.PostForm("name"),
		Age:      c.PostForm("age"),
		Email:    c.PostForm("email"),
		Phone:    c.PostForm("phone"),
		Style:    c.PostForm("style"),
		Monument: c.PostForm("monument"),
	}
	if v, ok := c.GetPostForm("include_logo"); ok {
		include := strings.EqualFold(v, "true") || v == "1"
		details.IncludeLogo = &include
	}

	if err := ss.Souvenir.SetDetails(details); err != nil {
		respondError(c, err)
		return
	}

	if fh, err := c.FormFile("photo"); err == nil {
		f, err := fh.Open()
		if err != nil {
			respondError(c, errors.Internal(err))
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxPhotoFormBytes))
		f.Close()
		if err != nil {
			respondError(c, errors.Internal(err))
			return
		}

		if err := ss.Souvenir.SetPhoto(data, fh.Header.Get("Content-Type")); err != nil {
			respondError(c, err)
			return
		}
	}

	snap, err := ss.Souvenir.Submit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, souvenirStateView(snap))
}

func (a *API) getSouvenir(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, souvenirStateView(ss.Souvenir.Snapshot()))
}

func (a *API) downloadSouvenir(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	url, filename, err := ss.Souvenir.Download()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":      url,
		"filename": filename,
	})
}

func (a *API) resetSouvenir(c *gin.Context) {
	ss, err := a.sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := ss.Souvenir.Reset(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, souvenirStateView(ss.Souvenir.Snapshot()))
}

func (a *API) listMonuments(c *gin.Context) {
	out := make([]monumentView, 0, len(a.catalog.Monuments))
	for _, m := range a.catalog.Monuments {
		out = append(out, monumentView{
			MonumentID:  m.MonumentID,
			Name:        m.Name,
			Era:         m.Era,
			Description: m.Description,
			ImageURL:    m.ImageURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"monuments": out})
}

func (a *API) listArtisans(c *gin.Context) {
	out := make([]artisanView, 0, len(a.catalog.Artisans))
	for _, w := range a.catalog.Artisans {
		out = append(out, artisanView{
			WorkID:      w.WorkID,
			Title:       w.Title,
			Artisan:     w.Artisan,
			Category:    w.Category,
			Price:       w.Price,
			Description: w.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"artisans": out})
}

func (a *API) findSouvenirItem(id string) (catalog.Souvenir, bool) {
	for _, item := range a.catalog.Souvenirs {
		if item.ItemID == id {
			return item, true
		}
	}
	return catalog.Souvenir{}, false
}

func respondError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code,
		"message": e.Message,
	})
}
