package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sanskritiar/heritage/internal/domain"
)

var (
	//go:embed questions.json
	questionsRawJSON []byte

	//go:embed achievements.json
	achievementsRawJSON []byte

	//go:embed souvenirs.json
	souvenirsRawJSON []byte

	//go:embed monuments.json
	monumentsRawJSON []byte

	//go:embed artisans.json
	artisansRawJSON []byte
)

// Achievement extends the domain achievement with the progress a fresh
// session starts at. The shipped content has one achievement already at its
// target; a pre-completed achievement never credits its reward.
type Achievement struct {
	domain.Achievement
	StartProgress int
}

// Souvenir extends the domain shop item with an owned-at-start marker.
type Souvenir struct {
	domain.SouvenirItem
	OwnedAtStart bool
}

// Catalog holds the fixed content the experience is built from: quiz
// questions, achievements, the digital-souvenir shop, and the static
// monument/artisan showcases. Content is embedded; any file can be replaced
// via Overrides.
type Catalog struct {
	Questions    []domain.Question
	Achievements []Achievement
	Souvenirs    []Souvenir
	Monuments    []domain.Monument
	Artisans     []domain.ArtisanWork
}

// Overrides points at replacement catalog files. Empty fields keep the
// embedded content.
type Overrides struct {
	QuestionsFile    string
	AchievementsFile string
	SouvenirsFile    string
	MonumentsFile    string
	ArtisansFile     string
}

type (
	questionEntry struct {
		ID           string   `json:"id"`
		Question     string   `json:"question"`
		Options      []string `json:"options"`
		CorrectIndex int      `json:"correct_index"`
		Fact         string   `json:"fact"`
	}

	achievementEntry struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Target        int    `json:"target"`
		RewardCoins   int    `json:"reward_coins"`
		StartProgress int    `json:"start_progress"`
	}

	souvenirEntry struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		Cost         int    `json:"cost"`
		Kind         string `json:"kind"`
		OwnedAtStart bool   `json:"owned_at_start"`
	}

	monumentEntry struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Era         string `json:"era"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}

	artisanEntry struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Artisan     string `json:"artisan"`
		Category    string `json:"category"`
		Price       string `json:"price"`
		Description string `json:"description"`
	}
)

// Load builds the catalog from the embedded content, applying any file
// overrides, and validates it.
func Load(o Overrides) (*Catalog, error) {
	c := &Catalog{}

	if err := loadInto(questionsRawJSON, o.QuestionsFile, &c.Questions, decodeQuestions); err != nil {
		return nil, fmt.Errorf("catalog: questions: %w", err)
	}
	if err := loadInto(achievementsRawJSON, o.AchievementsFile, &c.Achievements, decodeAchievements); err != nil {
		return nil, fmt.Errorf("catalog: achievements: %w", err)
	}
	if err := loadInto(souvenirsRawJSON, o.SouvenirsFile, &c.Souvenirs, decodeSouvenirs); err != nil {
		return nil, fmt.Errorf("catalog: souvenirs: %w", err)
	}
	if err := loadInto(monumentsRawJSON, o.MonumentsFile, &c.Monuments, decodeMonuments); err != nil {
		return nil, fmt.Errorf("catalog: monuments: %w", err)
	}
	if err := loadInto(artisansRawJSON, o.ArtisansFile, &c.Artisans, decodeArtisans); err != nil {
		return nil, fmt.Errorf("catalog: artisans: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	return c, nil
}

func loadInto[T any](embedded []byte, file string, dst *[]T, decode func([]byte) ([]T, error)) error {
	raw := embedded
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read override: %w", err)
		}
		raw = b
	}

	out, err := decode(bytes.TrimSpace(raw))
	if err != nil {
		return err
	}

	*dst = out
	return nil
}

func decodeQuestions(raw []byte) ([]domain.Question, error) {
	var entries []questionEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]domain.Question, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Question{
			QuestionID:   e.ID,
			QuestionText: e.Question,
			Options:      e.Options,
			CorrectIndex: e.CorrectIndex,
			Fact:         e.Fact,
		})
	}
	return out, nil
}

func decodeAchievements(raw []byte) ([]Achievement, error) {
	var entries []achievementEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]Achievement, 0, len(entries))
	for _, e := range entries {
		out = append(out, Achievement{
			Achievement: domain.Achievement{
				AchievementID: e.ID,
				Title:         e.Title,
				Description:   e.Description,
				Target:        e.Target,
				RewardCoins:   e.RewardCoins,
			},
			StartProgress: e.StartProgress,
		})
	}
	return out, nil
}

func decodeSouvenirs(raw []byte) ([]Souvenir, error) {
	var entries []souvenirEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]Souvenir, 0, len(entries))
	for _, e := range entries {
		out = append(out, Souvenir{
			SouvenirItem: domain.SouvenirItem{
				ItemID:      e.ID,
				Title:       e.Title,
				Description: e.Description,
				Cost:        e.Cost,
				Kind:        e.Kind,
			},
			OwnedAtStart: e.OwnedAtStart,
		})
	}
	return out, nil
}

func decodeMonuments(raw []byte) ([]domain.Monument, error) {
	var entries []monumentEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]domain.Monument, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Monument{
			MonumentID:  e.ID,
			Name:        e.Name,
			Era:         e.Era,
			Description: e.Description,
			ImageURL:    e.ImageURL,
		})
	}
	return out, nil
}

func decodeArtisans(raw []byte) ([]domain.ArtisanWork, error) {
	var entries []artisanEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]domain.ArtisanWork, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.ArtisanWork{
			WorkID:      e.ID,
			Title:       e.Title,
			Artisan:     e.Artisan,
			Category:    e.Category,
			Price:       e.Price,
			Description: e.Description,
		})
	}
	return out, nil
}

func (c *Catalog) validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("no questions")
	}
	for _, q := range c.Questions {
		if q.QuestionID == "" {
			return fmt.Errorf("question with empty id")
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %s: needs at least 2 options", q.QuestionID)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %s: correct_index %d out of range", q.QuestionID, q.CorrectIndex)
		}
	}

	for _, a := range c.Achievements {
		if a.AchievementID == "" {
			return fmt.Errorf("achievement with empty id")
		}
		if a.Target <= 0 {
			return fmt.Errorf("achievement %s: target must be positive", a.AchievementID)
		}
		if a.RewardCoins <= 0 {
			return fmt.Errorf("achievement %s: reward_coins must be positive", a.AchievementID)
		}
		if a.StartProgress < 0 || a.StartProgress > a.Target {
			return fmt.Errorf("achievement %s: start_progress %d out of range", a.AchievementID, a.StartProgress)
		}
	}

	for _, s := range c.Souvenirs {
		if s.ItemID == "" {
			return fmt.Errorf("souvenir with empty id")
		}
		if s.Cost <= 0 {
			return fmt.Errorf("souvenir %s: cost must be positive", s.ItemID)
		}
	}

	return nil
}
