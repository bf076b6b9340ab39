package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawrelay-server/internal/config"
	"github.com/vovakirdan/drawrelay-server/internal/core"
	"github.com/vovakirdan/drawrelay-server/internal/persist"
	"github.com/vovakirdan/drawrelay-server/internal/proto"
	"github.com/vovakirdan/drawrelay-server/internal/store"
	"github.com/vovakirdan/drawrelay-server/internal/store/memory"
)

type testEnv struct {
	ts     *httptest.Server
	hub    *core.Hub
	mirror *persist.Dispatcher
	store  store.Store
}

// startTestServer runs a hub, its persistence mirror and an HTTP server over
// an in-memory store.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	if mutate != nil {
		mutate(&cfg)
	}

	st := memory.New()
	mirror := persist.New(st, persist.Config{}, nil)
	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	go mirror.Run(mirrorCtx)

	hub := core.NewHub(core.HubConfig{GracePeriod: cfg.RoomGracePeriod}, mirror, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	disabledLogger := zerolog.Nop()
	server := NewServer(hub, mirror, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)

	t.Cleanup(func() {
		ts.Close()
		cancel()
		stopMirror()
		<-mirror.Done()
	})
	return &testEnv{ts: ts, hub: hub, mirror: mirror, store: st}
}

// testOutbound keeps Data raw so each test decodes the payload it expects.
type testOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(t *testing.T, ctx context.Context, env *testEnv) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readUntil skips outbound messages until one matches; error messages match
// on event "error".
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) testOutbound {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for {
		var out testOutbound
		if err := wsjson.Read(readCtx, conn, &out); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if out.Type == proto.OutboundTypeError && event == proto.OutboundTypeError {
			return out
		}
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out
		}
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return v
}
