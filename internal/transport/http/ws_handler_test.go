package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

func TestWebSocketStreamsLifecycle(t *testing.T) {
	service := app.NewQuizService(
		memory.NewGameCatalog(sampleGame()),
		memory.NewSessionStore(),
		app.NewKeyedMutex(),
	)
	server := httptest.NewServer(NewRouter(service, RouterConfig{JWTSecret: testSecret}))
	defer server.Close()

	ctx := context.Background()
	sessionID, err := service.Start(ctx, "42")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws/session/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the snapshot first.
	_, payload := readNext(conn, t, domain.EventSnapshot)
	if payload["position"] != float64(domain.LobbyPosition) {
		t.Fatalf("expected lobby snapshot, got %v", payload)
	}

	if _, err := service.Join(ctx, sessionID, "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	readNext(conn, t, domain.EventJoined)

	if _, err := service.Advance(ctx, "42"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	_, payload = readNext(conn, t, domain.EventAdvanced)
	if payload["position"] != float64(0) {
		t.Fatalf("expected position 0, got %v", payload)
	}

	if err := conn.WriteJSON(map[string]string{"type": "status"}); err != nil {
		t.Fatalf("write status: %v", err)
	}
	_, payload = readNext(conn, t, "status")
	if remaining, _ := payload["timeRemaining"].(float64); remaining <= 0 || remaining > 20 {
		t.Fatalf("unexpected time remaining %v", payload)
	}

	if err := service.End(ctx, "42"); err != nil {
		t.Fatalf("end: %v", err)
	}
	_, payload = readNext(conn, t, domain.EventEnded)
	if payload["active"] != false {
		t.Fatalf("expected inactive session, got %v", payload)
	}
}

func TestWebSocketHandlerExitsWhenClientGoesAway(t *testing.T) {
	service := app.NewQuizService(
		memory.NewGameCatalog(sampleGame()),
		memory.NewSessionStore(),
		app.NewKeyedMutex(),
	)
	server := httptest.NewServer(NewRouter(service, RouterConfig{JWTSecret: testSecret}))
	defer server.Close()

	sessionID, err := service.Start(context.Background(), "42")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	u := "ws" + server.URL[len("http"):] + "/ws/session/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readNext(conn, t, domain.EventSnapshot)

	// queue far more replies than the handler buffers, never read them
	for i := 0; i < 200; i++ {
		if err := conn.WriteJSON(map[string]string{"type": "status"}); err != nil {
			break
		}
	}
	_ = conn.UnderlyingConn().Close()

	deadline := time.Now().Add(5 * time.Second)
	for service.Events().Subscribers(sessionID) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("handler still subscribed after the client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	service := app.NewQuizService(memory.NewGameCatalog(), memory.NewSessionStore(), app.NewKeyedMutex())
	server := httptest.NewServer(NewRouter(service, RouterConfig{JWTSecret: testSecret}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/session/000000"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 handshake response, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
