package domain

// Question is a single heritage quiz question. CorrectIndex points into
// Options and is never exposed to the client before an answer is submitted.
type Question struct {
	QuestionID   string
	QuestionText string
	Options      []string
	CorrectIndex int
	Fact         string
}

// Achievement is a fixed progress goal with a coin reward on completion.
type Achievement struct {
	AchievementID string
	Title         string
	Description   string
	Target        int
	RewardCoins   int
}

// AchievementProgress is the mutable per-session view of an achievement.
type AchievementProgress struct {
	Achievement
	ProgressCount int
	Completed     bool
}

// SouvenirItem is a digital souvenir purchasable with Culture Coins.
type SouvenirItem struct {
	ItemID      string
	Title       string
	Description string
	Cost        int
	Kind        string
}

// Monument is a static heritage-site catalog entry.
type Monument struct {
	MonumentID  string
	Name        string
	Era         string
	Description string
	ImageURL    string
}

// ArtisanWork is a static artisan-showcase catalog entry.
type ArtisanWork struct {
	WorkID      string
	Title       string
	Artisan     string
	Category    string
	Price       string
	Description string
}
