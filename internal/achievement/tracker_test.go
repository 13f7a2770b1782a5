package achievement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanskritiar/heritage/internal/achievement"
	"github.com/sanskritiar/heritage/internal/catalog"
	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/event"
	"github.com/sanskritiar/heritage/internal/rewards"
)

func TestTracker_RecordProgress(t *testing.T) {
	type (
		inputs struct {
			startProgress int
			deltas        []int
		}

		outputs struct {
			progress domain.AchievementProgress
			balance  int
		}
	)

	// quiz-master-like entry: target 10, reward 30 coins.
	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"progress accumulates below target": {
			arrange: func() inputs {
				return inputs{deltas: []int{3, 4}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 7, out.progress.ProgressCount)
				require.False(t, out.progress.Completed)
				require.Equal(t, 0, out.balance)
			},
		},

		"crossing the target clamps, completes, and credits once": {
			arrange: func() inputs {
				return inputs{startProgress: 7, deltas: []int{5}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 10, out.progress.ProgressCount)
				require.True(t, out.progress.Completed)
				require.Equal(t, 30, out.balance)
			},
		},

		"progress after completion never re-credits": {
			arrange: func() inputs {
				return inputs{startProgress: 9, deltas: []int{1, 1, 5}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 10, out.progress.ProgressCount)
				require.True(t, out.progress.Completed)
				require.Equal(t, 30, out.balance, "reward must be credited exactly once")
			},
		},

		"an achievement born at target is completed but never credited": {
			arrange: func() inputs {
				return inputs{startProgress: 10, deltas: []int{1}}
			},

			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 10, out.progress.ProgressCount)
				require.True(t, out.progress.Completed)
				require.Equal(t, 0, out.balance)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()

			eb := event.NewBus()
			ledger := rewards.NewLedger(rewards.Config{
				SessionID: "s1",
				EventBus:  eb,
			})

			tr := achievement.NewTracker(achievement.Config{
				SessionID: "s1",
				EventBus:  eb,
				Ledger:    ledger,
				Catalog: []catalog.Achievement{
					{
						Achievement: domain.Achievement{
							AchievementID: "quiz-master",
							Title:         "Quiz Master",
							Target:        10,
							RewardCoins:   30,
						},
						StartProgress: in.startProgress,
					},
				},
			})

			var last domain.AchievementProgress
			for _, d := range in.deltas {
				last = tr.RecordProgress(context.Background(), "quiz-master", d)
			}
			eb.Stop()

			tt.assert(t, outputs{progress: last, balance: ledger.Balance()})
		})
	}
}

func TestTracker_UnknownIDPanics(t *testing.T) {
	tr := achievement.NewTracker(achievement.Config{
		SessionID: "s1",
		EventBus:  event.NewBus(),
		Ledger:    rewards.NewLedger(rewards.Config{SessionID: "s1", EventBus: event.NewBus()}),
	})

	require.Panics(t, func() {
		tr.RecordProgress(context.Background(), "no-such-achievement", 1)
	})
}

func TestTracker_CompletionPublishesEvent(t *testing.T) {
	eb := event.NewBus()

	done := make(chan domain.EventAchievementCompleted, 1)
	eb.Subscribe(domain.EventNameAchievementCompleted, func(ctx context.Context, e event.Event) error {
		done <- e.(domain.EventAchievementCompleted)
		return nil
	})

	tr := achievement.NewTracker(achievement.Config{
		SessionID: "s1",
		EventBus:  eb,
		Ledger:    rewards.NewLedger(rewards.Config{SessionID: "s1", EventBus: eb}),
		Catalog: []catalog.Achievement{
			{
				Achievement: domain.Achievement{
					AchievementID: "artisan-supporter",
					Target:        1,
					RewardCoins:   100,
				},
			},
		},
	})

	tr.RecordProgress(context.Background(), "artisan-supporter", 1)
	eb.Stop()

	require.Equal(t, domain.EventAchievementCompleted{
		SessionID:     "s1",
		AchievementID: "artisan-supporter",
		RewardCoins:   100,
	}, <-done)
}

func TestPercent(t *testing.T) {
	p := achievement.Percent(domain.AchievementProgress{
		Achievement:   domain.Achievement{Target: 30},
		ProgressCount: 25,
	})
	require.Equal(t, 83, p, "display percentage is floored")
}
