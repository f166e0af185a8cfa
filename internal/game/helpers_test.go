package game

import (
	"sync"
	"time"

	"frag-arena/internal/config"
)

// recordConn captures everything sent to a player so tests can assert on
// outbound traffic.
type recordConn struct {
	mu   sync.Mutex
	msgs []Envelope
}

func (c *recordConn) Send(msg Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

// events returns the captured event names in send order.
func (c *recordConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Event)
	}
	return out
}

func (c *recordConn) has(event string) bool {
	for _, e := range c.events() {
		if e == event {
			return true
		}
	}
	return false
}

// count returns how many envelopes carried an event.
func (c *recordConn) count(event string) int {
	n := 0
	for _, e := range c.events() {
		if e == event {
			n++
		}
	}
	return n
}

// last returns the most recent envelope for an event, if any.
func (c *recordConn) last(event string) (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		if c.msgs[i].Event == event {
			return c.msgs[i], true
		}
	}
	return Envelope{}, false
}

// countMetrics records shot rejections and the latest gauge values.
type countMetrics struct {
	NopMetrics
	mu       sync.Mutex
	rejected map[string]int
	rooms    int
	players  int
	bots     int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{rejected: make(map[string]int)}
}

func (m *countMetrics) IncShotRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *countMetrics) rejectedFor(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[reason]
}

func (m *countMetrics) SetRooms(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms = n
}

func (m *countMetrics) SetPopulation(players, bots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = players
	m.bots = bots
}

// gauges returns the latest rooms/players/bots gauge values.
func (m *countMetrics) gauges() (rooms, players, bots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms, m.players, m.bots
}

// testConfig uses short timers so lifecycle tests finish quickly.
func testConfig() config.GameConfig {
	return config.GameConfig{
		TickRate:        50,
		ArenaHalfExtent: 50,
		MaxRoomPlayers:  4,
		DefaultDuration: time.Minute,
		DefaultBots:     3,
		RespawnDelay:    50 * time.Millisecond,
		CleanupGrace:    50 * time.Millisecond,
	}
}

func newTestManager() *Manager {
	return NewManager(testConfig(), nil, nil)
}

func newTestPlayer(name string) (*Player, *recordConn) {
	conn := &recordConn{}
	return NewPlayer(name, "", 0, conn, testConfig().ArenaHalfExtent), conn
}
