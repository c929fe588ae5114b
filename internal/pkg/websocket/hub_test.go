package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/realtime"
	"github.com/yigit/scribelink/internal/middleware"
	"github.com/yigit/scribelink/internal/pkg/auth"
)

type fixture struct {
	hub    *Hub
	feed   *realtime.Broadcaster
	jwt    *auth.JWTService
	server *httptest.Server
	status atomic.Value
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		hub:  NewHub(zerolog.Nop()),
		feed: realtime.NewBroadcaster(),
		jwt:  auth.NewJWTService(auth.JWTConfig{SecretKey: "ws-secret", AccessTokenExp: time.Hour}),
	}
	f.status.Store(models.StatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx)

	enricher := realtime.EnricherFunc(func(context.Context, models.Session) ([]models.EnrichedMatchRequest, error) {
		st := f.status.Load().(models.MatchStatus)
		return []models.EnrichedMatchRequest{{MatchRequest: models.MatchRequest{ID: uuid.New(), Status: st}}}, nil
	})
	handler := NewHandler(f.hub, func() *realtime.Bridge {
		return realtime.NewBridge(f.feed, enricher, realtime.BridgeWithSettleDelay(0))
	}, zerolog.Nop())

	r := gin.New()
	r.Use(middleware.SessionID())
	r.GET("/ws", middleware.NewAuthMiddleware(f.jwt).JWTAuth(), handler.HandleConnection)
	f.server = httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		<-f.hub.Done()
		f.server.Close()
	})
	return f
}

func (f *fixture) dial(t *testing.T, userID uuid.UUID, sessionID string) *gws.Conn {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken(userID, "w@example.com", string(models.RoleWriter))
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token + "&sessionId=" + sessionID
	conn, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *gws.Conn) dto.RealtimeFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame dto.RealtimeFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHandleConnection_PushesInitialAndChangedLists(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	conn := f.dial(t, userID, "tab-1")

	frame := readFrame(t, conn)
	assert.Equal(t, dto.RealtimeFrameType, frame.Type)
	assert.True(t, frame.Realtime)
	require.Len(t, frame.Data, 1)
	assert.Equal(t, models.StatusPending, frame.Data[0].Status)
	assert.Eventually(t, func() bool { return f.hub.ClientsCount() == 1 }, time.Second, 5*time.Millisecond)

	f.status.Store(models.StatusAccepted)
	f.feed.Publish(realtime.ChangeEvent{Op: realtime.OpUpdate, ID: uuid.New(), StudentID: uuid.New(), WriterID: userID})

	frame = readFrame(t, conn)
	require.Len(t, frame.Data, 1)
	assert.Equal(t, models.StatusAccepted, frame.Data[0].Status)
}

func TestHandleConnection_RequiresToken(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_DisconnectClosesSession(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	conn := f.dial(t, userID, "tab-2")
	readFrame(t, conn)
	require.Eventually(t, func() bool { return f.hub.ClientsCount() == 1 }, time.Second, 5*time.Millisecond)

	f.hub.Disconnect(userID, "tab-2")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return f.hub.ClientsCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return f.feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_SameSessionReplacesClient(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	first := f.dial(t, userID, "tab-3")
	readFrame(t, first)
	require.Eventually(t, func() bool { return f.hub.ClientsCount() == 1 }, time.Second, 5*time.Millisecond)
	c1, _ := f.hub.Client(userID, "tab-3")

	second := f.dial(t, userID, "tab-3")
	readFrame(t, second)
	require.Eventually(t, func() bool {
		c2, ok := f.hub.Client(userID, "tab-3")
		return ok && c2 != c1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.hub.ClientsCount())

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return f.feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
}

func TestClient_EnqueueAfterCloseIsDropped(t *testing.T) {
	b := realtime.NewBridge(realtime.NewBroadcaster(), realtime.EnricherFunc(
		func(context.Context, models.Session) ([]models.EnrichedMatchRequest, error) { return nil, nil }))
	c := newClient(NewHub(zerolog.Nop()), nil, models.Session{SessionID: "x"}, b, zerolog.Nop())

	for i := 0; i < sendBuffer; i++ {
		assert.True(t, c.enqueue([]byte("{}")))
	}
	assert.False(t, c.enqueue([]byte("{}")), "full buffer drops")

	c.close()
	c.close()
	assert.False(t, c.enqueue([]byte("{}")))
}

func TestHub_SharedSessionIDAcrossUsersKeepsBothClients(t *testing.T) {
	f := newFixture(t)
	alice, mallory := uuid.New(), uuid.New()

	victim := f.dial(t, alice, "shared")
	readFrame(t, victim)
	require.Eventually(t, func() bool { return f.hub.ClientsCount() == 1 }, time.Second, 5*time.Millisecond)

	other := f.dial(t, mallory, "shared")
	readFrame(t, other)
	require.Eventually(t, func() bool { return f.hub.ClientsCount() == 2 }, time.Second, 5*time.Millisecond)

	f.hub.Disconnect(mallory, "shared")
	require.Eventually(t, func() bool { return f.hub.ClientsCount() == 1 }, time.Second, 5*time.Millisecond)
	_, ok := f.hub.Client(alice, "shared")
	assert.True(t, ok)

	// The first user's socket is still open and still receives updates.
	f.status.Store(models.StatusAccepted)
	f.feed.Publish(realtime.ChangeEvent{Op: realtime.OpUpdate, ID: uuid.New(), StudentID: uuid.New(), WriterID: alice})
	frame := readFrame(t, victim)
	require.Len(t, frame.Data, 1)
	assert.Equal(t, models.StatusAccepted, frame.Data[0].Status)
}
