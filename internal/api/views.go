package api

import (
	"github.com/sanskritiar/heritage/internal/achievement"
	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/session"
	"github.com/sanskritiar/heritage/internal/souvenir"
)

type (
	purchaseRequest struct {
		ItemID string `json:"item_id" binding:"required"`
	}

	progressRequest struct {
		Delta int `json:"delta"`
	}

	answerRequest struct {
		OptionIndex int `json:"option_index"`
	}
)

type (
	rewardsView struct {
		Balance int                `json:"balance"`
		Owned   []string           `json:"owned"`
		Items   []souvenirItemView `json:"items"`
	}

	souvenirItemView struct {
		ItemID      string `json:"item_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Cost        int    `json:"cost"`
		Kind        string `json:"kind"`
		Owned       bool   `json:"owned"`
		Affordable  bool   `json:"affordable"`
	}

	achievementProgressView struct {
		AchievementID string `json:"achievement_id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Target        int    `json:"target"`
		Progress      int    `json:"progress"`
		Percent       int    `json:"percent"`
		Completed     bool   `json:"completed"`
		RewardCoins   int    `json:"reward_coins"`
		Balance       int    `json:"balance,omitempty"`
	}

	quizView struct {
		QuestionID string   `json:"question_id"`
		Question   string   `json:"question"`
		Options    []string `json:"options"`
		Index      int      `json:"index"`
		Total      int      `json:"total"`
		Revealed   bool     `json:"revealed"`
	}

	answerView struct {
		Accepted     bool   `json:"accepted"`
		Correct      bool   `json:"correct"`
		CorrectIndex int    `json:"correct_index"`
		Fact         string `json:"fact"`
		CoinsAwarded int    `json:"coins_awarded"`
		Balance      int    `json:"balance"`
	}

	souvenirView struct {
		Status     string              `json:"status"`
		Details    souvenirDetailsView `json:"details"`
		HasPhoto   bool                `json:"has_photo"`
		ResultURL  string              `json:"result_url,omitempty"`
		FailReason string              `json:"fail_reason,omitempty"`
	}

	souvenirDetailsView struct {
		Name     string `json:"name"`
		Age      string `json:"age"`
		Email    string `json:"email,omitempty"`
		Phone    string `json:"phone,omitempty"`
		Style    string `json:"style,omitempty"`
		Monument string `json:"monument,omitempty"`
	}

	monumentView struct {
		MonumentID  string `json:"monument_id"`
		Name        string `json:"name"`
		Era         string `json:"era"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}

	artisanView struct {
		WorkID      string `json:"work_id"`
		Title       string `json:"title"`
		Artisan     string `json:"artisan"`
		Category    string `json:"category"`
		Price       string `json:"price"`
		Description string `json:"description"`
	}
)

func achievementView(p domain.AchievementProgress, balance int) achievementProgressView {
	return achievementProgressView{
		AchievementID: p.AchievementID,
		Title:         p.Title,
		Description:   p.Description,
		Target:        p.Target,
		Progress:      p.ProgressCount,
		Percent:       achievement.Percent(p),
		Completed:     p.Completed,
		RewardCoins:   p.RewardCoins,
		Balance:       balance,
	}
}

func achievementViews(ss *session.Session) []achievementProgressView {
	progress := ss.Achievements.Snapshot()
	out := make([]achievementProgressView, 0, len(progress))
	for _, p := range progress {
		out = append(out, achievementView(p, 0))
	}
	return out
}

func souvenirStateView(s souvenir.Snapshot) souvenirView {
	return souvenirView{
		Status: s.Status.String(),
		Details: souvenirDetailsView{
			Name:     s.Details.Name,
			Age:      s.Details.Age,
			Email:    s.Details.Email,
			Phone:    s.Details.Phone,
			Style:    s.Details.Style,
			Monument: s.Details.Monument,
		},
		HasPhoto:   s.HasPhoto,
		ResultURL:  s.ResultURL,
		FailReason: s.FailReason,
	}
}
