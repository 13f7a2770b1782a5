//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Runs against a locally started server and Redis.
const (
	baseURL   = "http://localhost:8080/api/v1"
	redisAddr = "localhost:6379"
	prefix    = "sanskriti"
)

func TestVisitorJourney(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wg := new(sync.WaitGroup)

	// Create a fresh session.
	var session struct {
		SessionID string `json:"session_id"`
		Balance   int    `json:"balance"`
	}
	doJSON(t, ctx, http.MethodPost, "/sessions", nil, &session)
	t.Logf("session %s starts with %d coins", session.SessionID, session.Balance)

	// Watch the session's notification channel.
	subscribeAsSession(t, makeRedis(t), wg, session.SessionID)

	// A handful of impatient taps on the same answer button. Exactly one
	// submission may be accepted; the rest echo the first result.
	var (
		eg       errgroup.Group
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 5; i++ {
		eg.Go(func() error {
			var resp struct {
				Accepted     bool `json:"accepted"`
				Correct      bool `json:"correct"`
				CoinsAwarded int  `json:"coins_awarded"`
				Balance      int  `json:"balance"`
			}
			if err := tryJSON(ctx, http.MethodPost,
				"/sessions/"+session.SessionID+"/quiz/answers",
				map[string]int{"option_index": 0}, &resp); err != nil {
				return err
			}

			mu.Lock()
			if resp.Accepted {
				accepted++
			}
			mu.Unlock()

			t.Logf("answer: accepted=%v correct=%v awarded=%d balance=%d",
				resp.Accepted, resp.Correct, resp.CoinsAwarded, resp.Balance)
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	require.Equal(t, 1, accepted, "one tap wins, no double credit")

	// Spend the winnings.
	var purchase struct {
		Balance int      `json:"balance"`
		Owned   []string `json:"owned"`
	}
	doJSON(t, ctx, http.MethodPost, "/sessions/"+session.SessionID+"/rewards/purchases",
		map[string]string{"item_id": "cultural-wallpaper-pack"}, &purchase)
	t.Logf("after purchase: balance=%d owned=%v", purchase.Balance, purchase.Owned)

	// Give the subscriber a beat to drain, then tear down.
	time.Sleep(2 * time.Second)
	doJSON(t, ctx, http.MethodDelete, "/sessions/"+session.SessionID, nil, nil)

	wg.Wait()
}

func doJSON(t *testing.T, ctx context.Context, method, path string, body, out any) {
	t.Helper()
	require.NoError(t, tryJSON(ctx, method, path, body, out))
}

func tryJSON(ctx context.Context, method, path string, body, out any) error {
	raw := []byte(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		raw = b
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func subscribeAsSession(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, sid string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("%s:session:%s", prefix, sid))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			t.Logf("notification %s: %s", n.Event, n.Data)
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, channel string) <-chan *redis.Message {
	// The subscriber lives for a bounded window; wg.Wait relies on the
	// timeout to wind it down.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	sub := rc.Subscribe(ctx, channel)
	t.Cleanup(func() {
		cancel()
		sub.Close()
	})

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{redisAddr},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}
