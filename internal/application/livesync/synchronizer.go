package livesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"vibetorrent/internal/domain/torrent"
	"vibetorrent/internal/logger"
	"vibetorrent/internal/metrics"
)

// Options control cadence and noise suppression.
type Options struct {
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	BatchDelay     time.Duration
	Heartbeat      time.Duration
	Thresholds     Thresholds
}

// DefaultOptions polls every 1s when busy and 5s when idle, batches for
// 500ms and sends a heartbeat every 30s.
func DefaultOptions() Options {
	return Options{
		ActiveInterval: time.Second,
		IdleInterval:   5 * time.Second,
		BatchDelay:     500 * time.Millisecond,
		Heartbeat:      30 * time.Second,
		Thresholds:     DefaultThresholds(),
	}
}

// Synchronizer keeps one current snapshot of daemon state and streams
// minimal patches to every registered subscriber.
//
// mu guards snapshot, pending and conns. pollMu serializes fetches so that
// the poll loop, forced syncs and subscriber priming never overlap.
type Synchronizer struct {
	source SnapshotSource
	opts   Options
	log    *logger.Logger
	clock  clock.Clock

	pollMu sync.Mutex

	mu        sync.Mutex
	snapshot  torrent.Snapshot
	connected bool
	interval  time.Duration
	pending   []Patch
	batch     *clock.Timer
	batchGen  uint64
	conns     map[string]*connection
}

// New creates a synchronizer. A nil clock means the wall clock.
func New(source SnapshotSource, opts Options, log *logger.Logger, clk clock.Clock) *Synchronizer {
	if clk == nil {
		clk = clock.New()
	}
	return &Synchronizer{
		source:   source,
		opts:     opts,
		log:      log.Component("livesync"),
		clock:    clk,
		snapshot: torrent.EmptySnapshot(),
		interval: opts.ActiveInterval,
		conns:    map[string]*connection{},
	}
}

// Run drives the poll loop and the heartbeat until ctx is done. The next
// poll is scheduled only after the previous one returns.
func (s *Synchronizer) Run(ctx context.Context) {
	heartbeat := s.clock.Ticker(s.opts.Heartbeat)
	defer heartbeat.Stop()
	timer := s.clock.Timer(s.NextInterval())
	defer timer.Stop()

	s.log.Info().
		Dur("active_interval", s.opts.ActiveInterval).
		Dur("idle_interval", s.opts.IdleInterval).
		Msg("live sync started")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			s.log.Info().Msg("live sync stopped")
			return
		case <-heartbeat.C:
			s.sendHeartbeat()
		case <-timer.C:
			s.poll(ctx)
			timer.Reset(s.NextInterval())
		}
	}
}

// Register sends the current snapshot to sink as the init event and then
// adds it to the broadcast set. When nobody was listening the stored
// snapshot may be stale, so it is refreshed first.
func (s *Synchronizer) Register(ctx context.Context, sink Sink) (string, error) {
	id := uuid.NewString()
	conn := newConnection(id, sink, s.log)

	if s.SubscriberCount() == 0 {
		s.prime(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeInit(s.snapshot, s.connected)
	if err != nil {
		conn.close()
		return "", fmt.Errorf("encode init: %w", err)
	}
	if err := conn.send(EventInit, data); err != nil {
		conn.close()
		return "", fmt.Errorf("send init: %w", err)
	}
	if err := conn.stream(); err != nil {
		conn.close()
		return "", err
	}

	s.conns[id] = conn
	metrics.SetSubscribers(len(s.conns))
	s.log.Info().Str("subscriber", id).Int("subscribers", len(s.conns)).Msg("subscriber registered")
	return id, nil
}

// Unregister closes and forgets a subscriber. Unknown ids are ignored.
func (s *Synchronizer) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[id]
	if !ok {
		return
	}
	conn.close()
	delete(s.conns, id)
	metrics.SetSubscribers(len(s.conns))
	s.log.Info().Str("subscriber", id).Int("subscribers", len(s.conns)).Msg("subscriber left")
}

// ForceSync polls now and flushes the result without waiting for either timer.
func (s *Synchronizer) ForceSync(ctx context.Context) {
	s.poll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// Snapshot returns a copy of the current state.
func (s *Synchronizer) Snapshot() torrent.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Connected reports whether the last fetch succeeded.
func (s *Synchronizer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SubscriberCount returns the number of registered subscribers.
func (s *Synchronizer) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// NextInterval is the delay before the next poll, chosen from the activity
// seen in the last successful fetch.
func (s *Synchronizer) NextInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Synchronizer) poll(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.SubscriberCount() == 0 {
		metrics.IncPoll(metrics.PollSkipped)
		return
	}

	snap, err := s.source.Snapshot(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.connected = false
		metrics.IncPoll(metrics.PollError)
		s.log.Warn().Err(err).Msg("snapshot fetch failed, keeping previous state")
		return
	}
	metrics.IncPoll(metrics.PollOK)
	s.applyLocked(snap)
}

// prime replaces the stored snapshot without producing patches. Queued
// patches are dropped since nobody received the state they apply to.
// A subscriber that registered while the fetch was running already holds
// the old snapshot, so in that case the change is diffed like a poll.
func (s *Synchronizer) prime(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	snap, err := s.source.Snapshot(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.connected = false
		s.log.Warn().Err(err).Msg("snapshot fetch failed while priming")
		return
	}
	if len(s.conns) > 0 {
		s.applyLocked(snap)
		return
	}
	s.stopBatchLocked()
	s.pending = nil
	s.snapshot = snap
	s.connected = true
	s.setIntervalLocked(snap)
}

// applyLocked replaces the stored snapshot and queues the patches that
// carry subscribers from the old one to snap.
func (s *Synchronizer) applyLocked(snap torrent.Snapshot) {
	patches := Diff(s.snapshot, snap, s.opts.Thresholds)
	s.snapshot = snap
	s.connected = true
	s.setIntervalLocked(snap)

	if len(patches) > 0 {
		s.enqueueLocked(patches)
	}
}

func (s *Synchronizer) setIntervalLocked(snap torrent.Snapshot) {
	s.interval = s.opts.IdleInterval
	if isActive(snap) {
		s.interval = s.opts.ActiveInterval
	}
	metrics.SetPollInterval(s.interval)
}

func isActive(snap torrent.Snapshot) bool {
	for _, t := range snap.Torrents {
		if t.DownloadRate > 0 || t.UploadRate > 0 || t.State == torrent.StatusDownloading {
			return true
		}
	}
	return false
}

func (s *Synchronizer) enqueueLocked(patches []Patch) {
	s.pending = append(s.pending, patches...)
	if s.batch == nil {
		s.batchGen++
		gen := s.batchGen
		s.batch = s.clock.AfterFunc(s.opts.BatchDelay, func() { s.flush(gen) })
	}
}

// flush runs from the batch timer. A timer that fired while its batch was
// being flushed by someone else must not touch the next batch.
func (s *Synchronizer) flush(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil || gen != s.batchGen {
		return
	}
	s.flushLocked()
}

func (s *Synchronizer) flushLocked() {
	s.stopBatchLocked()
	if len(s.pending) == 0 {
		return
	}
	merged := Merge(s.pending)
	s.pending = nil
	if len(merged) == 0 {
		return
	}

	data, err := encodePatches(merged)
	if err != nil {
		s.log.Error().Err(err).Msg("encode patches")
		return
	}
	s.broadcastLocked(EventPatch, data)
	metrics.AddFlushed(len(merged))
	s.log.Debug().Int("patches", len(merged)).Int("subscribers", len(s.conns)).Msg("batch sent")
}

func (s *Synchronizer) stopBatchLocked() {
	if s.batch != nil {
		s.batch.Stop()
		s.batch = nil
	}
}

func (s *Synchronizer) sendHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) == 0 {
		return
	}
	data, err := encodeHeartbeat(s.clock.Now().UnixMilli())
	if err != nil {
		s.log.Error().Err(err).Msg("encode heartbeat")
		return
	}
	s.broadcastLocked(EventHeartbeat, data)
}

// broadcastLocked sends to every subscriber. A failed send drops only that
// subscriber.
func (s *Synchronizer) broadcastLocked(event string, data []byte) {
	for id, conn := range s.conns {
		if err := conn.send(event, data); err != nil {
			conn.close()
			delete(s.conns, id)
			metrics.IncDropped()
			s.log.Warn().Err(err).Str("subscriber", id).Str("event", event).Msg("dropping subscriber")
		}
	}
	metrics.SetSubscribers(len(s.conns))
}

func (s *Synchronizer) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopBatchLocked()
	s.pending = nil
	for id, conn := range s.conns {
		conn.close()
		delete(s.conns, id)
	}
	metrics.SetSubscribers(0)
}
