package core

import (
	"errors"
	"sync"
	"testing"
)

func TestCreateHouseRace(t *testing.T) {
	dir := NewDirectory(testLogger())
	dir.EnsureUser("alice")
	dir.EnsureUser("bob")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, creator := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(creator string) {
			defer wg.Done()
			_, err := dir.CreateHouse("devs", creator)
			results <- err
		}(creator)
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrHouseExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got created=%d conflicts=%d", created, conflicts)
	}
}

func TestRegisterConnectionEvictsOldSession(t *testing.T) {
	dir := NewDirectory(testLogger())
	dir.EnsureUser("alice")

	old := &fakeChannel{}
	replacement := &fakeChannel{}

	dir.RegisterConnection("alice", old)
	dir.RegisterConnection("alice", replacement)

	if !old.isClosed() {
		t.Fatal("stale channel not closed on reconnect")
	}
	ch, ok := dir.LiveChannel("alice")
	if !ok || ch != replacement {
		t.Fatal("replacement channel not registered")
	}

	// The evicted session's deferred unregister must not remove the
	// replacement.
	dir.UnregisterConnection("alice", old)
	if _, ok := dir.LiveChannel("alice"); !ok {
		t.Fatal("replacement unregistered by stale session")
	}

	dir.UnregisterConnection("alice", replacement)
	if _, ok := dir.LiveChannel("alice"); ok {
		t.Fatal("channel still registered after unregister")
	}
}

func TestEnsureUserCreatesProfileAndPersonalHouse(t *testing.T) {
	dir := NewDirectory(testLogger())

	if !dir.EnsureUser("alice") {
		t.Fatal("first EnsureUser should report creation")
	}
	if dir.EnsureUser("alice") {
		t.Fatal("second EnsureUser should not report creation")
	}
	if !dir.HasUser("alice") {
		t.Fatal("profile missing")
	}
	if !dir.HasHouse("alice") {
		t.Fatal("personal namespace house missing")
	}
}

func TestOfflineSinceCursorSemantics(t *testing.T) {
	dir := NewDirectory(testLogger())
	dir.EnsureUser("alice")

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		dir.AppendOffline("alice", Message{Sender: "bob", Text: text})
	}

	if got := dir.OfflineSince("alice", -1); got != nil {
		t.Fatalf("cursor -1 must skip catch-up, got %d entries", len(got))
	}

	tail := dir.OfflineSince("alice", 3)
	if len(tail) != 2 || tail[0].Text != "d" || tail[1].Text != "e" {
		t.Fatalf("unexpected tail from cursor 3: %+v", tail)
	}

	if got := dir.OfflineSince("alice", 10); got != nil {
		t.Fatalf("cursor past end must yield nothing, got %d entries", len(got))
	}

	full := dir.OfflineSince("alice", 0)
	if len(full) != 5 {
		t.Fatalf("expected full log, got %d entries", len(full))
	}
}

func TestSenderColorResolution(t *testing.T) {
	dir := NewDirectory(testLogger())
	dir.EnsureUser("alice")
	if _, err := dir.CreateHouse("devs", "alice"); err != nil {
		t.Fatalf("create house: %v", err)
	}

	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"server is red", Message{Sender: ServerSender, House: "devs"}, "red"},
		{"home is magenta", Message{Sender: "alice", House: HomeHouse}, "magenta"},
		{"rank color in house", Message{Sender: "alice", House: "devs"}, "red"},
		{"non-member fallback", Message{Sender: "ghost", House: "devs"}, "white"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dir.SenderColor(tt.msg); got != tt.want {
				t.Fatalf("SenderColor(%+v) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	dir := NewDirectory(testLogger())
	dir.EnsureUser("alice")
	dir.EnsureUser("bob")
	dir.Ban("alice", "bob")
	if _, err := dir.CreateHouse("devs", "alice"); err != nil {
		t.Fatalf("create house: %v", err)
	}
	dir.AppendOffline("bob", Message{Sender: "alice", House: HomeHouse, Room: "bob", Text: "hi"})

	state := dir.Export()

	// Exported state is a deep copy: later mutations must not leak in.
	dir.Ban("bob", "alice")
	dir.AppendOffline("bob", Message{Text: "later"})
	if state.Profiles["bob"].HasBanned("alice") {
		t.Fatal("export is not a deep copy of profiles")
	}
	if len(state.Offline["bob"]) != 1 {
		t.Fatal("export is not a deep copy of offline logs")
	}

	restored := NewDirectory(testLogger())
	restored.Restore(state)

	if !restored.HasBanned("alice", "bob") {
		t.Fatal("ban set lost")
	}
	if !restored.HasHouse("devs") || !restored.HasHouse("alice") {
		t.Fatal("houses lost")
	}
	log := restored.OfflineSince("bob", 0)
	if len(log) != 1 || log[0].Text != "hi" {
		t.Fatalf("offline log lost: %+v", log)
	}
	if restored.SenderColor(Message{Sender: "alice", House: "devs"}) != "red" {
		t.Fatal("house ranks lost")
	}
}
