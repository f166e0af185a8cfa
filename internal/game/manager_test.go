package game

import (
	"testing"
	"time"
)

// TestQuickMatchCreatesWhenEmpty verifies quick match falls back to a new
// room with the default bot count
func TestQuickMatchCreatesWhenEmpty(t *testing.T) {
	mgr := newTestManager()
	p, _ := newTestPlayer("Solo")

	room, code := mgr.QuickMatch(p)
	if code != "" {
		t.Fatalf("QuickMatch failed: %s", code)
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.bots) != testConfig().DefaultBots {
		t.Errorf("bots = %d, want %d", len(room.bots), testConfig().DefaultBots)
	}
	if room.State != StateLobby {
		t.Errorf("state = %s, want lobby (one human is not enough to start)", room.State)
	}
}

// TestQuickMatchJoinsOldestAndAutoStarts verifies placement into an existing
// lobby and the two-human auto-start rule
func TestQuickMatchJoinsOldestAndAutoStarts(t *testing.T) {
	mgr := newTestManager()

	p1, _ := newTestPlayer("First")
	room1, _ := mgr.QuickMatch(p1)

	p2, _ := newTestPlayer("Second")
	room2, code := mgr.QuickMatch(p2)
	if code != "" {
		t.Fatalf("QuickMatch failed: %s", code)
	}

	if room1.ID != room2.ID {
		t.Fatal("second quick match should land in the existing room")
	}

	room2.mu.Lock()
	defer room2.mu.Unlock()
	if room2.State != StatePlaying {
		t.Errorf("state = %s, want playing after reaching two humans", room2.State)
	}
}

// TestQuickMatchSkipsEndedRooms verifies ended rooms are not join candidates
func TestQuickMatchSkipsEndedRooms(t *testing.T) {
	mgr := newTestManager()
	p1, _ := newTestPlayer("First")
	room1, _ := mgr.QuickMatch(p1)

	room1.mu.Lock()
	room1.State = StateEnded
	room1.mu.Unlock()

	p2, _ := newTestPlayer("Second")
	room2, code := mgr.QuickMatch(p2)
	if code != "" {
		t.Fatalf("QuickMatch failed: %s", code)
	}
	if room2.ID == room1.ID {
		t.Error("quick match placed a player into an ended room")
	}
}

// TestListRooms verifies the listing projection and its oldest-first order
func TestListRooms(t *testing.T) {
	mgr := newTestManager()

	p1, _ := newTestPlayer("A")
	r1, _ := mgr.CreateRoom(RoomOptions{Name: "First", Bots: 1}, p1)
	time.Sleep(5 * time.Millisecond)
	p2, _ := newTestPlayer("B")
	mgr.CreateRoom(RoomOptions{Name: "Second"}, p2)

	rooms := mgr.ListRooms()
	if len(rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(rooms))
	}
	if rooms[0].ID != r1.ID {
		t.Error("listing should be oldest first")
	}
	if rooms[0].Name != "First" || rooms[0].Players != 1 || rooms[0].Bots != 1 {
		t.Errorf("projection = %+v", rooms[0])
	}
	if rooms[0].HostName != "A" {
		t.Errorf("host name = %s, want A", rooms[0].HostName)
	}
}

// TestRoomDetail verifies the detail projection includes actors and feed
func TestRoomDetail(t *testing.T) {
	mgr := newTestManager()
	p, _ := newTestPlayer("Solo")
	room, _ := mgr.CreateRoom(RoomOptions{Bots: 2}, p)

	detail := room.Detail()
	if len(detail.Actors) != 3 {
		t.Errorf("actors = %d, want 3", len(detail.Actors))
	}
	if detail.KillFeed == nil {
		t.Error("kill feed should be an empty slice, not nil")
	}

	humans := 0
	for _, a := range detail.Actors {
		if !a.IsBot {
			humans++
		}
	}
	if humans != 1 {
		t.Errorf("human actors = %d, want 1", humans)
	}
}

// TestLeaderboard verifies cross-room ranking by kills with deaths tiebreak
func TestLeaderboard(t *testing.T) {
	mgr := newTestManager()

	pa, _ := newTestPlayer("Alice")
	ra, _ := mgr.CreateRoom(RoomOptions{Name: "A"}, pa)
	pb, _ := newTestPlayer("Bob")
	pc, _ := newTestPlayer("Cara")
	rb, _ := mgr.CreateRoom(RoomOptions{Name: "B"}, pb)
	rb.Join(pc)

	ra.mu.Lock()
	pa.Kills, pa.Deaths = 5, 2
	ra.mu.Unlock()
	rb.mu.Lock()
	pb.Kills, pb.Deaths = 5, 1
	pc.Kills, pc.Deaths = 9, 0
	rb.mu.Unlock()

	rows := mgr.Leaderboard(10)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Name != "Cara" {
		t.Errorf("first = %s, want Cara", rows[0].Name)
	}
	// Bob beats Alice on the deaths tiebreak
	if rows[1].Name != "Bob" || rows[2].Name != "Alice" {
		t.Errorf("order = %s, %s; want Bob, Alice", rows[1].Name, rows[2].Name)
	}

	if got := mgr.Leaderboard(1); len(got) != 1 {
		t.Errorf("limited rows = %d, want 1", len(got))
	}
}

// TestGetStats verifies process-wide population counters
func TestGetStats(t *testing.T) {
	mgr := newTestManager()

	p1, _ := newTestPlayer("A")
	mgr.CreateRoom(RoomOptions{Bots: 2}, p1)
	p2, _ := newTestPlayer("B")
	r2, _ := mgr.CreateRoom(RoomOptions{Bots: 1}, p2)
	r2.Start(p2.ID)

	s := mgr.GetStats()
	if s.Rooms != 2 || s.Playing != 1 || s.Players != 2 || s.Bots != 3 {
		t.Errorf("stats = %+v, want rooms=2 playing=1 players=2 bots=3", s)
	}
}

// TestCleanupRoomRevalidates verifies graceful cleanup only removes ended
// rooms unless forced
func TestCleanupRoomRevalidates(t *testing.T) {
	mgr := newTestManager()
	p, _ := newTestPlayer("Solo")
	room, _ := mgr.CreateRoom(RoomOptions{}, p)

	// Room is still in the lobby: a non-forced cleanup must not remove it.
	mgr.cleanupRoom(room.ID, false)
	if mgr.Get(room.ID) == nil {
		t.Fatal("cleanup removed a live room")
	}

	mgr.cleanupRoom(room.ID, true)
	if mgr.Get(room.ID) != nil {
		t.Error("forced cleanup should remove the room")
	}
}

// TestRespawnRevalidates verifies a queued respawn is a no-op once the
// match has ended
func TestRespawnRevalidates(t *testing.T) {
	mgr := newTestManager()
	killer, _ := newTestPlayer("Killer")
	victim, _ := newTestPlayer("Victim")
	room := startedRoom(t, mgr, killer, victim)

	room.mu.Lock()
	victim.Alive = false
	room.State = StateEnded
	room.mu.Unlock()

	mgr.respawnActor(room.ID, victim.ID)

	room.mu.Lock()
	defer room.mu.Unlock()
	if victim.Alive {
		t.Error("respawn fired after the match ended")
	}
}

// TestGaugesTrackJoinAndLeave verifies population gauges follow joins,
// leaves, and room teardown, not just creation
func TestGaugesTrackJoinAndLeave(t *testing.T) {
	metrics := newCountMetrics()
	mgr := NewManager(testConfig(), nil, metrics)

	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{Bots: 1}, host)

	second, _ := newTestPlayer("Second")
	if code := room.Join(second); code != "" {
		t.Fatalf("Join failed: %s", code)
	}
	if _, players, bots := metrics.gauges(); players != 2 || bots != 1 {
		t.Errorf("gauges after join = %d players / %d bots, want 2/1", players, bots)
	}

	room.Leave(second.ID)
	if _, players, _ := metrics.gauges(); players != 1 {
		t.Errorf("players gauge after leave = %d, want 1", players)
	}

	// Last human out tears the room down through a timer.
	room.Leave(host.ID)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rooms, players, bots := metrics.gauges(); rooms == 0 && players == 0 && bots == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	rooms, players, bots := metrics.gauges()
	t.Errorf("gauges after teardown = %d rooms / %d players / %d bots, want 0/0/0",
		rooms, players, bots)
}
