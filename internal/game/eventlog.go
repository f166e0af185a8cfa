package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// EventType classifies match event log entries.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRoomCreated
	EventTypeJoin
	EventTypeLeave
	EventTypeMatchStart
	EventTypeDamage
	EventTypeKill
	EventTypeRespawn
	EventTypeMatchEnd
)

// String returns the human-readable event type.
func (t EventType) String() string {
	switch t {
	case EventTypeRoomCreated:
		return "room_created"
	case EventTypeJoin:
		return "join"
	case EventTypeLeave:
		return "leave"
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeRespawn:
		return "respawn"
	case EventTypeMatchEnd:
		return "match_end"
	default:
		return "unknown"
	}
}

// EventVersion for backwards compatibility when replaying old logs.
const EventVersion uint8 = 1

// Event is one match event log record.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic
	RoomID    string    `json:"roomId"`
	ActorID   string    `json:"actorId"` // Source actor (also rate-limit key)
	Payload   []byte    `json:"payload"` // JSON-encoded payload
}

// Typed payloads.

// JoinPayload covers join and leave records.
type JoinPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// MatchPayload covers room_created, match_start and match_end records.
type MatchPayload struct {
	RoomID  string `json:"roomId"`
	Players int    `json:"players"`
	Bots    int    `json:"bots"`
}

// DamagePayload records one damage application.
type DamagePayload struct {
	AttackerID string `json:"attackerId"`
	VictimID   string `json:"victimId"`
	Damage     int    `json:"damage"`
	VictimHP   int    `json:"victimHp"`
	WeaponID   string `json:"weaponId"`
}

// KillPayload records one kill.
type KillPayload struct {
	KillerID string `json:"killerId"`
	VictimID string `json:"victimId"`
	Weapon   string `json:"weapon"`
	Headshot bool   `json:"headshot"`
	PvP      bool   `json:"pvp"`
	XP       int    `json:"xp"`
}

// RespawnPayload records one respawn.
type RespawnPayload struct {
	ActorID string  `json:"actorId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

const (
	EventBufferSize    = 1024                   // Circular buffer size
	MaxEventsPerSec    = 10000                  // Global rate limit
	MaxEventsPerActor  = 100                    // Per-actor rate limit per second
	BatchFlushSize     = 64                     // Events per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
	ActorLimiterTTL    = 5 * time.Minute        // Cleanup interval for actor limiters
)

// EventLog provides bounded, rate-limited match event logging with
// backpressure. Emission never blocks gameplay: over-budget events drop.
type EventLog struct {
	// Circular buffer. bufMu serializes slot access between emitting rooms
	// and the writer; the heads stay atomic so GetStats never takes the lock.
	bufMu     sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64 // atomic - producer position
	readHead  uint64 // atomic - consumer position

	globalLimiter *rate.Limiter
	actorLimiters sync.Map // map[string]*actorLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type actorLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates a new bounded event log.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer goroutine.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop gracefully shuts down the event log.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event with rate limiting. Returns false if rate limited
// or the log is not running.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	// Per-actor limit keeps one noisy entity from flooding the log.
	if event.ActorID != "" {
		limiter := el.getActorLimiter(event.ActorID)
		if !limiter.Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	el.bufMu.Lock()
	head := atomic.AddUint64(&el.writeHead, 1)
	tail := atomic.LoadUint64(&el.readHead)

	// Buffer full: drop the oldest (rolling window).
	if head-tail >= EventBufferSize {
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = head
	el.buffer[(head-1)%EventBufferSize] = event
	el.bufMu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, roomID, actorID string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return el.Emit(Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		RoomID:    roomID,
		ActorID:   actorID,
		Payload:   data,
	})
}

func (el *EventLog) getActorLimiter(actorID string) *rate.Limiter {
	if entry, ok := el.actorLimiters.Load(actorID); ok {
		e := entry.(*actorLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &actorLimiterEntry{
		limiter:  rate.NewLimiter(MaxEventsPerActor, MaxEventsPerActor/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.actorLimiters.LoadOrStore(actorID, entry)
	return actual.(*actorLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously.
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Final flush
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
			return

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale actor limiters to prevent a memory leak.
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(ActorLimiterTTL)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupActorLimiters()
		}
	}
}

func (el *EventLog) cleanupActorLimiters() {
	cutoff := time.Now().Add(-ActorLimiterTTL)
	el.actorLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*actorLimiterEntry)
		if entry.lastUsed.Before(cutoff) {
			el.actorLimiters.Delete(key)
		}
		return true
	})
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	el.bufMu.Lock()
	defer el.bufMu.Unlock()

	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		batch = append(batch, el.buffer[i%EventBufferSize])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}

	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON).
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// GetStats returns counters for monitoring.
func (el *EventLog) GetStats() map[string]interface{} {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": head - tail,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events.
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events accepted.
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
