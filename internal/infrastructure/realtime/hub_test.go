package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/nutrition"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, monitoring.NewMetrics(), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(runDone)
	}()

	// the user id travels in a header in place of a real session
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := uuid.Parse(r.Header.Get("X-Test-User")); err == nil {
			r = r.WithContext(middleware.WithIdentity(r.Context(), &middleware.Identity{UserID: id}))
		}
		hub.ServeHTTP(w, r)
	}))

	t.Cleanup(func() {
		cancel()
		<-runDone
		srv.Close()
	})
	return hub, srv
}

// verifyNoLeaks runs after every cleanup registered later in the test
func verifyNoLeaks(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })
}

func dial(t *testing.T, srv *httptest.Server, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"X-Test-User": []string{userID.String()}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, hub *Hub, userID uuid.UUID, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Connections(context.Background())[userID] == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DeliversOnlyToOwner(t *testing.T) {
	verifyNoLeaks(t)

	hub, srv := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	aliceTab1 := dial(t, srv, alice)
	aliceTab2 := dial(t, srv, alice)
	bobConn := dial(t, srv, bob)
	waitForConnections(t, hub, alice, 2)
	waitForConnections(t, hub, bob, 1)

	hub.SendToUser(alice, Message{Type: "nutrition.logged", Data: map[string]int{"calories": 420}})

	for _, conn := range []*websocket.Conn{aliceTab1, aliceTab2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg struct {
			Type string         `json:"type"`
			Data map[string]int `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "nutrition.logged", msg.Type)
		assert.Equal(t, 420, msg.Data["calories"])
	}

	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bobConn.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's events")
}

func TestHub_UnregistersClosedConnections(t *testing.T) {
	hub, srv := startHub(t)
	user := uuid.New()

	conn := dial(t, srv, user)
	waitForConnections(t, hub, user, 1)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		_, ok := hub.Connections(context.Background())[user]
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsAnonymous(t *testing.T) {
	_, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_StopClosesConnections(t *testing.T) {
	verifyNoLeaks(t)

	hub, srv := startHub(t)
	user := uuid.New()
	conn := dial(t, srv, user)
	waitForConnections(t, hub, user, 1)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// sends after stop are dropped without blocking
	hub.SendToUser(user, Message{Type: "late"})
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]Message
}

func (n *recordingNotifier) SendToUser(userID uuid.UUID, msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[uuid.UUID][]Message)
	}
	n.sent[userID] = append(n.sent[userID], msg)
}

type anonymousEvent struct{}

func (anonymousEvent) EventName() string     { return "nutrition.logged" }
func (anonymousEvent) OccurredAt() time.Time { return time.Time{} }

func TestEventBus_ForwardsOwnedEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	bus := NewEventBus(notifier, monitoring.NewMetrics(), zaptest.NewLogger(t))
	user := uuid.New()
	now := time.Now()

	bus.Publish(context.Background(),
		mealplan.MealPlanGeneratedEvent{PlanID: uuid.New(), UserID: user, MealCount: 21, GeneratedAt: now},
		mealplan.MealSwappedEvent{UserID: user, Day: shared.Monday, MealType: recipe.MealType("lunch"), SwappedAt: now},
		nutrition.FoodLoggedEvent{UserID: user, Calories: 350, LoggedAt: now},
		recipe.RecipePublishedEvent{},
	)

	require.Len(t, notifier.sent[user], 3)
	assert.Equal(t, "mealplan.generated", notifier.sent[user][0].Type)
	assert.Equal(t, now, notifier.sent[user][0].Timestamp)

	payload, err := json.Marshal(notifier.sent[user][2].Data)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"calories":350`)
}

func TestEventBus_HandlerErrorsDoNotStopOthers(t *testing.T) {
	bus := NewEventBus(nil, nil, zaptest.NewLogger(t))

	var calls []string
	bus.Register("nutrition.logged", func(shared.DomainEvent) error {
		calls = append(calls, "first")
		return assert.AnError
	})
	bus.Register("nutrition.logged", func(shared.DomainEvent) error {
		calls = append(calls, "second")
		return nil
	})

	err := bus.Dispatch(nutrition.FoodLoggedEvent{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NotPanics(t, func() { bus.Publish(context.Background(), nutrition.FoodLoggedEvent{}) })
}

func TestForward_RequiresOwner(t *testing.T) {
	err := Forward(&recordingNotifier{})(anonymousEvent{})
	assert.Error(t, err)
}
