package handlers

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/onnwee/paperscape-layout/internal/server"
)

func TestStreamHandlerPushesBackgroundFrames(t *testing.T) {
	e := server.NewEngine(rand.New(rand.NewSource(1)))
	ctx := t.Context()
	go e.Run(ctx, 10*time.Millisecond)

	if err := e.SetPapers(ctx, chain(5), nil); err != nil {
		t.Fatalf("SetPapers: %v", err)
	}
	if _, err := e.SelectRange(ctx, 1, 5, false); err != nil {
		t.Fatalf("SelectRange: %v", err)
	}

	stream := NewStreamHandler(e)
	srv := httptest.NewServer(http.HandlerFunc(stream.HandleStream))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "frame" {
		t.Errorf("expected message type 'frame', got %q", msg.Type)
	}
}
