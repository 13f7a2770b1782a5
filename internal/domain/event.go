package domain

const (
	EventNameCoinsCredited        = "rewards.credited"
	EventNameSouvenirPurchased    = "rewards.purchased"
	EventNameAchievementCompleted = "achievement.completed"
	EventNameSouvenirGenerated    = "souvenir.generated"
)

type EventCoinsCredited struct {
	SessionID string
	Amount    int
	Balance   int
	Reason    string
}

func (EventCoinsCredited) Name() string { return EventNameCoinsCredited }

type EventSouvenirPurchased struct {
	SessionID string
	ItemID    string
	Cost      int
	Balance   int
}

func (EventSouvenirPurchased) Name() string { return EventNameSouvenirPurchased }

type EventAchievementCompleted struct {
	SessionID     string
	AchievementID string
	RewardCoins   int
}

func (EventAchievementCompleted) Name() string { return EventNameAchievementCompleted }

type EventSouvenirGenerated struct {
	SessionID string
	ImageURL  string
}

func (EventSouvenirGenerated) Name() string { return EventNameSouvenirGenerated }
