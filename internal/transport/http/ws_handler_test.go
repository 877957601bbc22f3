package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/hearthchat/hearth-server/internal/config"
	"github.com/hearthchat/hearth-server/internal/core"
	"github.com/hearthchat/hearth-server/internal/proto"
)

func startTestServer(t *testing.T) (*httptest.Server, *core.Directory) {
	t.Helper()

	logger := zerolog.Nop()
	dir := core.NewDirectory(&logger)
	router := core.NewRouter(dir)
	bcast := core.NewBroadcaster(dir, &logger, 0)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bcast.Run(ctx)

	server := NewServer(config.Default(), dir, router, bcast, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, dir
}

func dialWS(t *testing.T, ts *httptest.Server, user string, cursor int) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })

	hello := proto.Hello{User: user, Cursor: cursor, Protocol: proto.ProtocolVersion}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		t.Fatalf("send hello: %v", err)
	}
	return conn
}

func recvFrame(t *testing.T, conn *websocket.Conn) proto.Frame {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var f proto.Frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("recv frame: %v", err)
	}
	return f
}

func waitForUser(t *testing.T, dir *core.Directory, user string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if dir.HasUser(user) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %s never registered", user)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestDirectMessageOverWebSocket(t *testing.T) {
	ts, dir := startTestServer(t)

	alice := dialWS(t, ts, "alice", -1)
	bob := dialWS(t, ts, "bob", -1)
	waitForUser(t, dir, "alice")
	waitForUser(t, dir, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := wsjson.Write(ctx, alice, proto.Frame{House: core.HomeHouse, Room: "bob", Text: "yo"})
	if err != nil {
		t.Fatalf("send dm: %v", err)
	}

	addRoom := recvFrame(t, bob)
	if addRoom.Action != "add_room" || addRoom.Data["room"] != "alice" {
		t.Fatalf("expected add_room first, got %+v", addRoom)
	}
	relay := recvFrame(t, bob)
	if relay.Text != "yo" || !strings.Contains(relay.Sender, "alice") {
		t.Fatalf("unexpected relay: %+v", relay)
	}

	echo := recvFrame(t, alice)
	if !strings.Contains(echo.Sender, core.SelfSender) {
		t.Fatalf("expected self echo, got %+v", echo)
	}
}

func TestWebSocketHandshakeRejectsEmptyUser(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	if err := wsjson.Write(ctx, conn, proto.Hello{User: "", Cursor: -1}); err != nil {
		t.Fatalf("send hello: %v", err)
	}

	// The server closes the connection; the next read must fail.
	var f proto.Frame
	if err := wsjson.Read(ctx, conn, &f); err == nil {
		t.Fatalf("expected close after bad hello, got %+v", f)
	}
}

func TestWebSocketCatchUp(t *testing.T) {
	ts, dir := startTestServer(t)

	dir.EnsureUser("bob")
	dir.AppendOffline("bob", core.Message{Sender: "[magenta]alice[/magenta]", House: core.HomeHouse, Room: "alice", Text: "missed"})

	bob := dialWS(t, ts, "bob", 0)

	f := recvFrame(t, bob)
	if f.Text != "missed" || f.Sender != "[magenta]alice[/magenta]" {
		t.Fatalf("catch-up entry corrupted: %+v", f)
	}
}
