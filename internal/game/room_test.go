package game

import (
	"testing"
	"time"
)

// TestCreateRoomDefaults verifies zero-value options fall back to config
func TestCreateRoomDefaults(t *testing.T) {
	mgr := newTestManager()
	host, conn := newTestPlayer("Host")

	room, code := mgr.CreateRoom(RoomOptions{}, host)
	if code != "" {
		t.Fatalf("CreateRoom failed: %s", code)
	}

	if room.Name == "" {
		t.Error("room name should be generated")
	}
	if room.Mode != ModeFFA {
		t.Errorf("mode = %s, want ffa", room.Mode)
	}
	if room.MaxPlayers != testConfig().MaxRoomPlayers {
		t.Errorf("max players = %d, want %d", room.MaxPlayers, testConfig().MaxRoomPlayers)
	}
	if room.Difficulty != DifficultyNormal {
		t.Errorf("difficulty = %s, want normal", room.Difficulty)
	}
	if room.Duration != testConfig().DefaultDuration {
		t.Errorf("duration = %s, want %s", room.Duration, testConfig().DefaultDuration)
	}
	if room.State != StateLobby {
		t.Errorf("state = %s, want lobby", room.State)
	}
	if room.HostID != host.ID {
		t.Error("creator should be host")
	}
	if !conn.has(EvRoomJoined) {
		t.Error("creator never received room_joined")
	}
}

// TestCreateRoomClampsCapacity verifies oversized capacity requests are clamped
func TestCreateRoomClampsCapacity(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")

	room, _ := mgr.CreateRoom(RoomOptions{MaxPlayers: 999, Bots: 2}, host)
	if room.MaxPlayers != testConfig().MaxRoomPlayers {
		t.Errorf("max players = %d, want clamped to %d", room.MaxPlayers, testConfig().MaxRoomPlayers)
	}

	room.mu.Lock()
	bots := len(room.bots)
	room.mu.Unlock()
	if bots != 2 {
		t.Errorf("bots = %d, want 2", bots)
	}
}

// TestJoinFullRoom verifies ROOM_FULL rejection
func TestJoinFullRoom(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{MaxPlayers: 2}, host)

	p2, _ := newTestPlayer("Second")
	if code := room.Join(p2); code != "" {
		t.Fatalf("second join failed: %s", code)
	}

	p3, _ := newTestPlayer("Third")
	if code := room.Join(p3); code != ErrRoomFull {
		t.Errorf("third join = %q, want ROOM_FULL", code)
	}
}

// TestJoinBroadcast verifies existing members see player_joined but the
// joiner gets room_joined instead
func TestJoinBroadcast(t *testing.T) {
	mgr := newTestManager()
	host, hostConn := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)

	p2, p2Conn := newTestPlayer("Second")
	room.Join(p2)

	if !hostConn.has(EvPlayerJoined) {
		t.Error("host never saw player_joined")
	}
	if p2Conn.has(EvPlayerJoined) {
		t.Error("joiner should not see their own player_joined")
	}
	if !p2Conn.has(EvRoomJoined) {
		t.Error("joiner never received room_joined")
	}
}

// TestStartPermissions verifies only the host can start, and only from lobby
func TestStartPermissions(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)
	p2, _ := newTestPlayer("Second")
	room.Join(p2)

	if code := room.Start(p2.ID); code != ErrNotHost {
		t.Errorf("non-host start = %q, want NOT_HOST", code)
	}
	if code := room.Start(host.ID); code != "" {
		t.Fatalf("host start failed: %s", code)
	}
	if code := room.Start(host.ID); code != ErrBadState {
		t.Errorf("double start = %q, want BAD_STATE", code)
	}
}

// TestMatchStartResets verifies the lobby -> playing transition resets everyone
func TestMatchStartResets(t *testing.T) {
	mgr := newTestManager()
	host, hostConn := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{Bots: 2}, host)

	room.mu.Lock()
	host.Kills = 7
	host.MatchXP = 400
	host.Health = 12
	room.mu.Unlock()

	room.Start(host.ID)

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.State != StatePlaying {
		t.Fatalf("state = %s, want playing", room.State)
	}
	if host.Kills != 0 || host.MatchXP != 0 {
		t.Error("match counters should reset on start")
	}
	if host.Health != MaxHealth || host.Armor != RespawnArmor {
		t.Errorf("combat state: health=%d armor=%d", host.Health, host.Armor)
	}
	for _, b := range room.bots {
		if !b.Alive || b.Health != MaxHealth {
			t.Error("bots should spawn alive at full health")
		}
	}
	if !hostConn.has(EvMatchStarted) {
		t.Error("host never received match_started")
	}
}

// TestMatchEndsOnClock verifies the clock expiry path: ended state,
// scoreboard broadcast, and scheduled room deletion
func TestMatchEndsOnClock(t *testing.T) {
	mgr := newTestManager()
	host, hostConn := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{Duration: 200 * time.Millisecond}, host)
	roomID := room.ID

	room.Start(host.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hostConn.has(EvMatchEnded) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	env, ok := hostConn.last(EvMatchEnded)
	if !ok {
		t.Fatal("match never ended")
	}
	data := env.Data.(MatchEndedData)
	if len(data.Scoreboard) != 1 || data.Scoreboard[0].ID != host.ID {
		t.Errorf("scoreboard = %+v", data.Scoreboard)
	}

	// The transition fires exactly once and the tick loop stops with it:
	// nothing streams after match_ended.
	snapshotsAtEnd := hostConn.count(EvGameState)
	time.Sleep(200 * time.Millisecond)
	if n := hostConn.count(EvMatchEnded); n != 1 {
		t.Errorf("match_ended broadcast %d times, want 1", n)
	}
	if n := hostConn.count(EvGameState); n != snapshotsAtEnd {
		t.Errorf("%d game_state broadcasts arrived after match_ended", n-snapshotsAtEnd)
	}

	// CleanupGrace is 50ms in the test config
	if mgr.Get(roomID) != nil {
		t.Error("ended room should be deleted after the grace period")
	}
}

// TestGameStateBroadcast verifies playing rooms stream snapshots
func TestGameStateBroadcast(t *testing.T) {
	mgr := newTestManager()
	host, hostConn := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{Bots: 1}, host)
	room.Start(host.ID)

	time.Sleep(150 * time.Millisecond)

	env, ok := hostConn.last(EvGameState)
	if !ok {
		t.Fatal("no game_state received")
	}
	data := env.Data.(GameStateData)
	if data.RoomID != room.ID {
		t.Errorf("snapshot room = %s, want %s", data.RoomID, room.ID)
	}
	if len(data.Players) != 2 {
		t.Errorf("snapshot actors = %d, want 2 (1 human + 1 bot)", len(data.Players))
	}
	if data.TimeLeft <= 0 {
		t.Errorf("timeLeft = %d, want positive", data.TimeLeft)
	}
}

// TestLeaveMigratesHost verifies host migration on departure
func TestLeaveMigratesHost(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)
	p2, p2Conn := newTestPlayer("Second")
	room.Join(p2)

	room.Leave(host.ID)

	room.mu.Lock()
	newHost := room.HostID
	room.mu.Unlock()
	if newHost != p2.ID {
		t.Errorf("host = %s, want %s", newHost, p2.ID)
	}
	env, ok := p2Conn.last(EvHostChanged)
	if !ok {
		t.Fatal("no host_changed received")
	}
	if env.Data.(HostChangedData).HostID != p2.ID {
		t.Error("host_changed names the wrong player")
	}
}

// TestLastHumanLeavingDeletesRoom verifies immediate teardown regardless of state
func TestLastHumanLeavingDeletesRoom(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{Bots: 2}, host)
	roomID := room.ID
	room.Start(host.ID)

	room.Leave(host.ID)

	time.Sleep(100 * time.Millisecond)
	if mgr.Get(roomID) != nil {
		t.Error("room with no humans should be deleted immediately")
	}
}

// TestUpdatePlayerClampsPosition verifies out-of-bounds reports are corrected
func TestUpdatePlayerClampsPosition(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)
	room.Start(host.ID)

	room.UpdatePlayer(host.ID, Vec3{X: 500, Y: PlayerEyeHeight, Z: -500}, 1.5, -0.2, "")

	room.mu.Lock()
	defer room.mu.Unlock()
	half := testConfig().ArenaHalfExtent
	if host.Pos.X != half || host.Pos.Z != -half {
		t.Errorf("position = %+v, want clamped to ±%.0f", host.Pos, half)
	}
	if host.Yaw != 1.5 || host.Pitch != -0.2 {
		t.Error("rotation should be stored as reported")
	}
}

// TestUpdatePlayerIgnoredWhenDeadOrLobby verifies movement gates
func TestUpdatePlayerIgnoredWhenDeadOrLobby(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)

	room.mu.Lock()
	before := host.Pos
	room.mu.Unlock()

	// Lobby: ignored
	room.UpdatePlayer(host.ID, Vec3{X: 1, Z: 1}, 0, 0, "")
	room.mu.Lock()
	if host.Pos != before {
		t.Error("movement should be ignored in the lobby")
	}
	room.mu.Unlock()

	room.Start(host.ID)

	room.mu.Lock()
	host.Alive = false
	before = host.Pos
	room.mu.Unlock()

	// Dead: ignored
	room.UpdatePlayer(host.ID, Vec3{X: 9, Z: 9}, 0, 0, "")
	room.mu.Lock()
	defer room.mu.Unlock()
	if host.Pos != before {
		t.Error("movement should be ignored while dead")
	}
}

// TestUpdatePlayerSwitchesWeapon verifies loadout changes ride the update
// stream and unknown keys are ignored
func TestUpdatePlayerSwitchesWeapon(t *testing.T) {
	mgr := newTestManager()
	host, _ := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)
	room.Start(host.ID)

	room.UpdatePlayer(host.ID, Vec3{Y: PlayerEyeHeight}, 0, 0, "rocket")
	room.mu.Lock()
	if host.Weapon != "rocket" {
		t.Errorf("weapon = %q, want rocket", host.Weapon)
	}
	room.mu.Unlock()

	room.UpdatePlayer(host.ID, Vec3{Y: PlayerEyeHeight}, 0, 0, "bazooka")
	room.mu.Lock()
	if host.Weapon != "rocket" {
		t.Errorf("weapon = %q after unknown key, want rocket", host.Weapon)
	}
	room.mu.Unlock()

	room.UpdatePlayer(host.ID, Vec3{Y: PlayerEyeHeight}, 0, 0, "")
	room.mu.Lock()
	defer room.mu.Unlock()
	if host.Weapon != "rocket" {
		t.Errorf("weapon = %q after empty key, want rocket", host.Weapon)
	}
}

// TestChatRelay verifies chat reaches the whole room including the sender
func TestChatRelay(t *testing.T) {
	mgr := newTestManager()
	host, hostConn := newTestPlayer("Host")
	room, _ := mgr.CreateRoom(RoomOptions{}, host)
	p2, p2Conn := newTestPlayer("Second")
	room.Join(p2)

	room.Chat(host.ID, "gg")

	for name, conn := range map[string]*recordConn{"host": hostConn, "second": p2Conn} {
		env, ok := conn.last(EvChatMessage)
		if !ok {
			t.Fatalf("%s never received chat_message", name)
		}
		data := env.Data.(ChatData)
		if data.SenderID != host.ID || data.Message != "gg" {
			t.Errorf("%s chat payload = %+v", name, data)
		}
	}

	// Empty messages are dropped
	room.Chat(host.ID, "")
}

// TestKillFeedCap verifies the feed evicts oldest entries past the cap
func TestKillFeedCap(t *testing.T) {
	mgr := newTestManager()
	killer, _ := newTestPlayer("Killer")
	victim, _ := newTestPlayer("Victim")
	room := startedRoom(t, mgr, killer, victim)

	room.mu.Lock()
	for i := 0; i < KillFeedCap+10; i++ {
		victim.Alive = true
		room.handleKill(&killer.Actor, &victim.Actor, "assault", false)
	}
	size := len(room.feed)
	oldest := room.feed[0]
	room.mu.Unlock()

	if size != KillFeedCap {
		t.Errorf("feed size = %d, want %d", size, KillFeedCap)
	}
	if oldest.KillerID != killer.ID {
		t.Errorf("unexpected oldest entry: %+v", oldest)
	}
}
