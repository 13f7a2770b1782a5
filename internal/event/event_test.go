package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanskritiar/heritage/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a single subscriber should receive only its event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("rewards.credited"),
						eventWithName("achievement.completed"),
					},
					subscribers: []subscriber{
						{
							name:        "notifier",
							subscribeTo: []string{"rewards.credited"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("rewards.credited")}, out.received["notifier"])
			},
		},

		"repeated events should all be delivered": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("rewards.credited"),
						eventWithName("rewards.credited"),
					},
					subscribers: []subscriber{
						{
							name:        "notifier",
							subscribeTo: []string{"rewards.credited"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["notifier"], 2)
			},
		},

		"an event should fan out to all subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("souvenir.generated"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"souvenir.generated"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"souvenir.generated"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("souvenir.generated")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("souvenir.generated")}, out.received["s2"])
			},
		},

		"multiple events should route by name across subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("rewards.credited"),
						eventWithName("achievement.completed"),
						eventWithName("rewards.credited"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"rewards.credited"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"rewards.credited", "achievement.completed"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["s1"], 2)
				assert.Len(t, out.received["s2"], 3)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_HandlerFailureIsIsolated(t *testing.T) {
	b := event.NewBus()

	var (
		mu    sync.Mutex
		calls int
	)

	b.Subscribe("rewards.credited", func(ctx context.Context, e event.Event) error {
		return errors.New("boom")
	})
	b.Subscribe("rewards.credited", func(ctx context.Context, e event.Event) error {
		panic("handler bug")
	})
	b.Subscribe("rewards.credited", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), eventWithName("rewards.credited"))
	b.Publish(context.Background(), eventWithName("rewards.credited"))
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls, "healthy handler should see every event despite sibling failures")
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
