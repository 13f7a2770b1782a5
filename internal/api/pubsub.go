package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sanskritiar/heritage/internal/domain"
)

// Notification is the envelope pushed onto a session's pubsub channel so the
// front-end can refresh without polling.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type (
	coinsCreditedData struct {
		Amount  int    `json:"amount"`
		Balance int    `json:"balance"`
		Reason  string `json:"reason"`
	}

	souvenirPurchasedData struct {
		ItemID  string `json:"item_id"`
		Cost    int    `json:"cost"`
		Balance int    `json:"balance"`
	}

	achievementCompletedData struct {
		AchievementID string `json:"achievement_id"`
		RewardCoins   int    `json:"reward_coins"`
	}

	souvenirGeneratedData struct {
		ImageURL string `json:"image_url"`
	}
)

func (a *API) publishCoinsCredited(ctx context.Context, e domain.EventCoinsCredited) error {
	return a.publishNotification(ctx, e.SessionID, e.Name(), coinsCreditedData{
		Amount:  e.Amount,
		Balance: e.Balance,
		Reason:  e.Reason,
	})
}

func (a *API) publishSouvenirPurchased(ctx context.Context, e domain.EventSouvenirPurchased) error {
	return a.publishNotification(ctx, e.SessionID, e.Name(), souvenirPurchasedData{
		ItemID:  e.ItemID,
		Cost:    e.Cost,
		Balance: e.Balance,
	})
}

func (a *API) publishAchievementCompleted(ctx context.Context, e domain.EventAchievementCompleted) error {
	return a.publishNotification(ctx, e.SessionID, e.Name(), achievementCompletedData{
		AchievementID: e.AchievementID,
		RewardCoins:   e.RewardCoins,
	})
}

func (a *API) publishSouvenirGenerated(ctx context.Context, e domain.EventSouvenirGenerated) error {
	return a.publishNotification(ctx, e.SessionID, e.Name(), souvenirGeneratedData{
		ImageURL: e.ImageURL,
	})
}

func (a *API) publishNotification(ctx context.Context, sessionID, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:session:%s", a.prefix, sessionID), b).Err()
}
