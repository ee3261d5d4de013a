package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further messages possible
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, m)
	case <-time.After(within):
		// good: no message
	}
}

func recvClosed(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox not closed within %v", within)
		}
	}
}

func recvView(t *testing.T, l *Lobby, within time.Duration) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	v, ok := l.View(ctx)
	if !ok {
		t.Fatalf("timed out waiting for view")
	}
	return v
}

func newTestLobby(t *testing.T, cfg Config) *Lobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if cfg.Code == "" {
		cfg.Code = "AB12"
	}
	return NewLobby(ctx, cfg, engine.NewEmptyState())
}

func joinPlayer(t *testing.T, l *Lobby, out chan types.ServerMessage, connID, playerID, name string) {
	t.Helper()
	l.Inbox() <- Join{ConnID: connID, Outbox: out}
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdJoin, ConnID: connID, PlayerID: playerID, Name: name}}
}

func TestLobby_JoinSendsSnapshotOnlyToNewConnection(t *testing.T) {
	l := newTestLobby(t, Config{})

	first := make(chan types.ServerMessage, 4)
	l.Inbox() <- Join{ConnID: "c1", Outbox: first}
	snap := recvMsg(t, first, 100*time.Millisecond)
	if snap.Type != pkgtypes.EventGameState || snap.Version != 0 {
		t.Fatalf("after join: want game-state v0, got %s v%d", snap.Type, snap.Version)
	}
	if snap.State.Display.Screen != engine.ScreenLobby {
		t.Fatalf("fresh room should show the lobby, got %q", snap.State.Display.Screen)
	}

	second := make(chan types.ServerMessage, 4)
	l.Inbox() <- Join{ConnID: "c2", Outbox: second}
	_ = recvMsg(t, second, 100*time.Millisecond)

	recvNoMsg(t, first, 50*time.Millisecond)
}

func TestLobby_JoinGameBroadcastsAndVersionIncrements(t *testing.T) {
	l := newTestLobby(t, Config{})

	out := make(chan types.ServerMessage, 8)
	joinPlayer(t, l, out, "c1", "u1", "Ann")
	_ = recvMsg(t, out, 100*time.Millisecond) // private snapshot

	next := recvMsg(t, out, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after join-game: want version=1, got %d", next.Version)
	}
	if p := next.State.Players["u1"]; p.Name != "Ann" || p.Score != 0 {
		t.Fatalf("after join-game: unexpected player %+v", p)
	}
	if l.PlayerCount() != 1 {
		t.Fatalf("PlayerCount: want 1, got %d", l.PlayerCount())
	}
}

func TestLobby_BuzzAnnouncesWinnerThenSoundThenState(t *testing.T) {
	l := newTestLobby(t, Config{})

	out := make(chan types.ServerMessage, 16)
	joinPlayer(t, l, out, "c1", "u1", "Ann")
	joinPlayer(t, l, out, "c2", "u2", "Bob")
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdUpdateDisplay, Display: &engine.Display{Screen: engine.ScreenQuestion}}}

	// join snapshot, two join-game states, display state
	for range 4 {
		_ = recvMsg(t, out, 100*time.Millisecond)
	}

	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdBuzz, ConnID: "c1"}}
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdBuzz, ConnID: "c2"}}

	winner := recvMsg(t, out, 100*time.Millisecond)
	if winner.Type != pkgtypes.EventBuzzerWinner {
		t.Fatalf("want buzzer-winner first, got %s", winner.Type)
	}
	if bw := winner.Payload.(pkgtypes.BuzzerWinner); bw.PlayerID != "u1" || bw.PlayerName != "Ann" {
		t.Fatalf("unexpected winner %+v", bw)
	}

	sound := recvMsg(t, out, 100*time.Millisecond)
	if sound.Type != pkgtypes.EventPlaySound || sound.Payload != pkgtypes.SoundBuzzer {
		t.Fatalf("want buzzer sound second, got %s %v", sound.Type, sound.Payload)
	}

	state := recvMsg(t, out, 100*time.Millisecond)
	if state.Type != pkgtypes.EventGameState || state.State.CurrentBuzzer != "u1" || !state.State.IsBuzzerLocked {
		t.Fatalf("want locked state last, got %+v", state)
	}

	// u2's buzz was a no-op: nothing else arrives.
	recvNoMsg(t, out, 50*time.Millisecond)
}

func TestLobby_ConcurrentBuzzesLatchExactlyOneWinner(t *testing.T) {
	l := newTestLobby(t, Config{InboxSize: 128})

	const players = 20
	watcher := make(chan types.ServerMessage, 256)
	l.Inbox() <- Join{ConnID: "display", Outbox: watcher}
	for i := range players {
		id := string(rune('a' + i))
		l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdJoin, ConnID: "c-" + id, PlayerID: "u-" + id, Name: id}}
	}
	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdUpdateDisplay, Display: &engine.Display{Screen: engine.ScreenQuestion}}}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range players {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdBuzz, ConnID: "c-" + id}}
		}(string(rune('a' + i)))
	}
	close(start)
	wg.Wait()

	view := recvView(t, l, 500*time.Millisecond)
	if !view.State.IsBuzzerLocked || view.State.CurrentBuzzer == "" {
		t.Fatalf("no winner latched")
	}

	winners := 0
	for {
		select {
		case m := <-watcher:
			if m.Type == pkgtypes.EventBuzzerWinner {
				winners++
				if m.Payload.(pkgtypes.BuzzerWinner).PlayerID != view.State.CurrentBuzzer {
					t.Fatalf("announced winner differs from latched buzzer")
				}
			}
			continue
		default:
		}
		break
	}
	if winners != 1 {
		t.Fatalf("want exactly one buzzer-winner, got %d", winners)
	}
}

func TestLobby_MarkQuestionPlayedTwiceBroadcastsOnce(t *testing.T) {
	l := newTestLobby(t, Config{})

	out := make(chan types.ServerMessage, 8)
	l.Inbox() <- Join{ConnID: "c1", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	mark := FromClient{Cmd: engine.Command{Type: engine.CmdMarkQuestionPlayed, Key: engine.QuestionKey(0, 0, 0)}}
	l.Inbox() <- mark
	l.Inbox() <- mark

	snap := recvMsg(t, out, 100*time.Millisecond)
	if len(snap.State.PlayedQuestions) != 1 {
		t.Fatalf("want one played key, got %v", snap.State.PlayedQuestions)
	}
	recvNoMsg(t, out, 50*time.Millisecond)

	if v := recvView(t, l, 100*time.Millisecond); v.Version != 1 {
		t.Fatalf("duplicate mark bumped version to %d", v.Version)
	}
}

func TestLobby_PlaySoundIsRelayedWithoutState(t *testing.T) {
	l := newTestLobby(t, Config{})

	out := make(chan types.ServerMessage, 4)
	l.Inbox() <- Join{ConnID: "c1", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdPlaySound, Sound: pkgtypes.SoundApplause}}
	m := recvMsg(t, out, 100*time.Millisecond)
	if m.Type != pkgtypes.EventPlaySound || m.Payload != pkgtypes.SoundApplause {
		t.Fatalf("unexpected relay %+v", m)
	}
	recvNoMsg(t, out, 50*time.Millisecond)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newTestLobby(t, Config{})

	clientOut := make(chan types.ServerMessage, 1)
	l.Inbox() <- Join{ConnID: "ch1", Outbox: clientOut}

	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdResetBuzzer}}

	view := recvView(t, l, 100*time.Millisecond)
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
	recvClosed(t, clientOut, 100*time.Millisecond)
	if l.Stopped() {
		t.Fatalf("dropping a client must not stop the room")
	}
}

func TestLobby_LeaveKeepsPlayerButUnbindsConnection(t *testing.T) {
	l := newTestLobby(t, Config{})

	out := make(chan types.ServerMessage, 8)
	joinPlayer(t, l, out, "c1", "u1", "Ann")
	l.Inbox() <- Leave{ConnID: "c1"}
	recvClosed(t, out, 100*time.Millisecond)

	view := recvView(t, l, 100*time.Millisecond)
	if _, ok := view.State.Players["u1"]; !ok {
		t.Fatalf("leave removed the player")
	}
	if _, ok := view.State.PlayerByConn("c1"); ok {
		t.Fatalf("leave kept the connection bound")
	}
	if view.NumClients != 0 {
		t.Fatalf("NumClients=%d after leave", view.NumClients)
	}
}

func TestLobby_DeleteGameNotifiesAndStops(t *testing.T) {
	deleted := make(chan *Lobby, 1)
	l := newTestLobby(t, Config{OnDelete: func(lb *Lobby) { deleted <- lb }})

	out := make(chan types.ServerMessage, 4)
	l.Inbox() <- Join{ConnID: "c1", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	l.Inbox() <- FromClient{Cmd: engine.Command{Type: engine.CmdDeleteGame, ConnID: "c1"}}

	m := recvMsg(t, out, 100*time.Millisecond)
	if m.Type != pkgtypes.EventGameDeleted {
		t.Fatalf("want game-deleted, got %s", m.Type)
	}
	recvClosed(t, out, 100*time.Millisecond)

	select {
	case lb := <-deleted:
		if lb != l {
			t.Fatalf("OnDelete called with another lobby")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("OnDelete not called")
	}

	if !l.Stopped() {
		t.Fatalf("lobby still running after delete")
	}
	if l.Send(FromClient{Cmd: engine.Command{Type: engine.CmdResetGame}}) {
		t.Fatalf("Send to a deleted room should miss")
	}
}

func TestLobby_ShutdownNotify(t *testing.T) {
	l := newTestLobby(t, Config{})

	out := make(chan types.ServerMessage, 4)
	l.Inbox() <- Join{ConnID: "c1", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	l.Inbox() <- Shutdown{Notify: true}
	if m := recvMsg(t, out, 100*time.Millisecond); m.Type != pkgtypes.EventGameDeleted {
		t.Fatalf("want game-deleted, got %s", m.Type)
	}
	recvClosed(t, out, 100*time.Millisecond)

	select {
	case <-l.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("lobby did not stop")
	}
}

func TestLobby_ParentCancelClosesOutboxes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLobby(ctx, Config{Code: "ZZ"}, engine.NewEmptyState())

	out := make(chan types.ServerMessage, 4)
	l.Inbox() <- Join{ConnID: "c1", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	cancel()
	recvClosed(t, out, 200*time.Millisecond)
}

func TestLobby_RejoinSameConnectionKeepsPlayerBinding(t *testing.T) {
	l := newTestLobby(t, Config{})

	first := make(chan types.ServerMessage, 8)
	joinPlayer(t, l, first, "c1", "u1", "Ann")

	second := make(chan types.ServerMessage, 8)
	l.Inbox() <- Join{ConnID: "c1", Outbox: second}
	recvClosed(t, first, 100*time.Millisecond)
	_ = recvMsg(t, second, 100*time.Millisecond)

	view := recvView(t, l, 100*time.Millisecond)
	p, ok := view.State.PlayerByConn("c1")
	if !ok || p.ID != "u1" {
		t.Fatalf("re-join lost the connection binding: %+v ok=%v", p, ok)
	}
	if view.NumClients != 1 {
		t.Fatalf("NumClients=%d after re-join", view.NumClients)
	}
}
