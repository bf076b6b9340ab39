package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/drawrelay-server/internal/proto"
)

// ws_smoke joins a room with two connections, draws a stroke from the first
// and checks that the second one receives it.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "SMOKE1", "room id")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	drawer, err := dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer drawer.Close(websocket.StatusNormalClosure, "bye")

	watcher, err := dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer watcher.Close(websocket.StatusNormalClosure, "bye")

	for user, conn := range map[string]*websocket.Conn{"smoke-drawer": drawer, "smoke-watcher": watcher} {
		if err := send(ctx, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{RoomID: *room, UserID: user}); err != nil {
			return err
		}
		snap, err := waitFor(ctx, conn, proto.EventDrawingData)
		if err != nil {
			return err
		}
		var payload proto.EventDrawingDataPayload
		if err := json.Unmarshal(snap, &payload); err != nil {
			return fmt.Errorf("decode drawing-data: %w", err)
		}
		log.Printf("%s joined %s, %d commands replayed", user, payload.RoomID, len(payload.Commands))
	}

	stroke := proto.DrawEndData{
		Path:  []proto.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 15}},
		Color: "#ff0000",
		Width: 3,
		Tool:  "pen",
	}
	if err := send(ctx, drawer, proto.InboundTypeDrawEnd, stroke); err != nil {
		return err
	}

	data, err := waitFor(ctx, watcher, proto.EventDrawEnd)
	if err != nil {
		return err
	}
	var got proto.EventDrawEndPayload
	if err := json.Unmarshal(data, &got); err != nil {
		return fmt.Errorf("decode draw-end: %w", err)
	}
	log.Printf("received draw-end from %s with %d points", got.UserID, len(got.Path))
	return nil
}

func dial(ctx context.Context, addr string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func waitFor(ctx context.Context, conn *websocket.Conn, event string) (json.RawMessage, error) {
	for {
		var out struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", event, err)
		}
		if out.Type == proto.OutboundTypeError && out.Error != nil {
			return nil, fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}
		if out.Event == event {
			return out.Data, nil
		}
	}
}
