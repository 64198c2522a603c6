package player

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Notification is emitted after every committed mutation and consumed by
// the broadcast hub. Songs is non-nil only when playlist membership
// changed alongside the playback fields.
type Notification struct {
	Version uint64
	State   StateSnapshot
	Songs   []SongSnapshot
}

// Result is the per-command outcome returned to the issuing client.
// Message is a human-readable status or error; it is never broadcast.
type Result struct {
	Message string
	Changed bool
	Err     error
}

// Service is the single writer of the playback state. All mutations are
// serialized through its mutex and apply in arrival order; no command
// interleaves with another.
type Service struct {
	mu    sync.Mutex
	state State
	list  Playlist
	sink  AudioSink
	store StateStore

	sinkTimeout time.Duration
	randIndex   func(n int) int
	notifs      chan Notification
}

// Option configures a Service.
type Option func(*Service)

// WithSinkTimeout bounds every individual AudioSink call.
func WithSinkTimeout(d time.Duration) Option {
	return func(s *Service) { s.sinkTimeout = d }
}

// WithRandIndex replaces the shuffle random source (tests).
func WithRandIndex(fn func(n int) int) Option {
	return func(s *Service) { s.randIndex = fn }
}

// NewService creates the state machine over the given playlist, device and
// state store. The store may be nil (persistence disabled).
func NewService(list Playlist, sink AudioSink, store StateStore, opts ...Option) *Service {
	s := &Service{
		state:       DefaultState(),
		list:        list,
		sink:        sink,
		store:       store,
		sinkTimeout: 5 * time.Second,
		randIndex:   rand.Intn,
		notifs:      make(chan Notification, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifications returns the change stream consumed by the broadcast hub.
func (s *Service) Notifications() <-chan Notification {
	return s.notifs
}

// Snapshot returns a consistent copy of the current state and playlist,
// used to bring a freshly connected client up to date.
func (s *Service) Snapshot() (StateSnapshot, []SongSnapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot(), s.songSnapshots(), s.state.Version
}

// Probe verifies the state machine is responsive: the writer lock must be
// acquirable within the given budget. Returns ErrStalled otherwise.
func (s *Service) Probe(budget time.Duration) error {
	deadline := time.Now().Add(budget)
	for {
		if s.mu.TryLock() {
			s.mu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return ErrStalled
		}
		time.Sleep(time.Millisecond)
	}
}

// Restore installs persisted playback fields at startup, clamped against
// the current playlist. It does not bump the version or broadcast; clients
// receive their baseline on connect. If the restored state was playing,
// playback resumes on the device.
func (s *Service) Restore(ctx context.Context, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Volume = clampVolume(st.Volume)
	s.state.Shuffle = st.Shuffle
	s.state.CurrentIndex = st.CurrentIndex
	s.state.Paused = st.Paused

	if s.state.CurrentIndex >= s.list.Len() {
		s.state.CurrentIndex = s.list.Len() - 1
	}
	if s.state.CurrentIndex < 0 {
		s.state.CurrentIndex = -1
	}
	if s.list.Len() == 0 {
		s.state.CurrentIndex = -1
		s.state.Paused = true
	}

	if err := s.callSink(ctx, func(c context.Context) error {
		return s.sink.SetVolume(c, s.state.Volume)
	}); err != nil {
		log.Warn().Err(err).Msg("Restore: set volume failed")
	}

	if !s.state.Paused && s.state.CurrentIndex >= 0 {
		track, _ := s.list.At(s.state.CurrentIndex)
		if err := s.callSink(ctx, func(c context.Context) error {
			return s.sink.Play(c, track)
		}); err != nil {
			log.Warn().Err(err).Str("track", track.Name).Msg("Restore: resume playback failed")
			s.state.Paused = true
		}
	}

	log.Info().
		Int("current_index", s.state.CurrentIndex).
		Bool("paused", s.state.Paused).
		Float64("volume", s.state.Volume).
		Bool("shuffle", s.state.Shuffle).
		Msg("Player state restored")
}

// Run consumes device events until the context is cancelled. A track-end
// event advances to the next track unless playback is paused.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.sink.Events():
			if !ok {
				return
			}
			if ev.Kind == EventTrackEnded {
				s.autoAdvance(ctx)
			}
		}
	}
}

// Apply executes one command under exclusive access and returns its
// outcome. Successful mutations bump the version, persist the state and
// emit a change notification; failed preconditions touch nothing.
func (s *Service) Apply(ctx context.Context, cmd Command) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Op {
	case OpPlay:
		return s.applyPlay(ctx)
	case OpPause:
		return s.applyPause(ctx)
	case OpPlayIndex:
		return s.applyPlayIndex(ctx, cmd.Index)
	case OpVolume:
		return s.applyVolume(ctx, cmd.Volume)
	case OpToggleShuffle:
		return s.applyToggleShuffle()
	case OpNext:
		return s.applyStep(ctx, +1)
	case OpBack:
		return s.applyStep(ctx, -1)
	case OpDelete:
		return s.applyDelete(ctx, cmd.Index)
	}
	return Result{Message: "Unknown command", Err: ErrInvalidCommand}
}

// AppendTrack adds a newly ingested track to the end of the playlist,
// bumps the version and broadcasts the changed song list.
func (s *Service) AppendTrack(t Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.list.Append(t); err != nil {
		return fmt.Errorf("append track: %w", err)
	}
	before := s.state
	s.commit(before, true)
	log.Info().Str("track", t.Name).Msg("Track appended to playlist")
	return nil
}

// ReplaceTracks swaps the whole playlist for a freshly scanned one,
// preserving the current selection by track identity where possible.
// No-op when the scan matches the current playlist.
func (s *Service) ReplaceTracks(ctx context.Context, tracks []Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sameTrackIDs(s.list.Tracks(), tracks) {
		return
	}

	before := s.state
	var currentID string
	if cur, ok := s.list.At(s.state.CurrentIndex); ok {
		currentID = cur.ID
	}

	s.list.Replace(tracks)

	s.state.CurrentIndex = -1
	for i, t := range tracks {
		if t.ID == currentID && currentID != "" {
			s.state.CurrentIndex = i
			break
		}
	}
	if s.state.CurrentIndex == -1 {
		// Selected track disappeared out from under us.
		if !before.Paused {
			if err := s.callSink(ctx, s.sink.Stop); err != nil {
				log.Warn().Err(err).Msg("ReplaceTracks: stop failed")
			}
		}
		s.state.Paused = true
		if len(tracks) > 0 {
			s.state.CurrentIndex = 0
		}
	}

	s.commit(before, true)
	log.Info().Int("tracks", len(tracks)).Msg("Playlist replaced from library scan")
}

// --- Command implementations (mutex held) ---

func (s *Service) applyPlay(ctx context.Context) Result {
	if s.list.Len() == 0 {
		return Result{Message: "Playlist is empty.", Err: ErrEmptyPlaylist}
	}

	before := s.state
	freshSelect := s.state.CurrentIndex < 0
	if freshSelect {
		s.state.CurrentIndex = 0
	}

	if before.Paused || freshSelect {
		track, _ := s.list.At(s.state.CurrentIndex)
		err := s.callSink(ctx, func(c context.Context) error {
			if freshSelect {
				return s.sink.Play(c, track)
			}
			return s.sink.Resume(c)
		})
		if err != nil {
			log.Error().Err(err).Str("track", track.Name).Msg("Play failed on audio device")
			s.state.Paused = true
			changed := s.commit(before, false)
			return Result{
				Message: "Audio device error: could not start playback.",
				Changed: changed,
				Err:     ErrDeviceFailure,
			}
		}
		s.state.Paused = false
	}

	return Result{Changed: s.commit(before, false)}
}

func (s *Service) applyPause(ctx context.Context) Result {
	before := s.state
	s.state.Paused = true
	if !before.Paused {
		if err := s.callSink(ctx, s.sink.Pause); err != nil {
			// Still marked paused; the device is told again on resume.
			log.Warn().Err(err).Msg("Pause failed on audio device")
		}
	}
	return Result{Changed: s.commit(before, false)}
}

func (s *Service) applyPlayIndex(ctx context.Context, idx int) Result {
	if idx < 0 || idx >= s.list.Len() {
		return Result{
			Message: fmt.Sprintf("No song at position %d.", idx),
			Err:     ErrOutOfRange,
		}
	}

	before := s.state
	s.state.CurrentIndex = idx
	track, _ := s.list.At(idx)
	if err := s.callSink(ctx, func(c context.Context) error {
		return s.sink.Play(c, track)
	}); err != nil {
		log.Error().Err(err).Str("track", track.Name).Msg("Play failed on audio device")
		s.state.Paused = true
		changed := s.commit(before, false)
		return Result{
			Message: "Audio device error: could not start playback.",
			Changed: changed,
			Err:     ErrDeviceFailure,
		}
	}
	s.state.Paused = false
	return Result{Changed: s.commit(before, false)}
}

func (s *Service) applyVolume(ctx context.Context, v float64) Result {
	before := s.state
	s.state.Volume = clampVolume(v)
	if s.state.Volume != before.Volume {
		if err := s.callSink(ctx, func(c context.Context) error {
			return s.sink.SetVolume(c, s.state.Volume)
		}); err != nil {
			log.Warn().Err(err).Float64("volume", s.state.Volume).Msg("SetVolume failed on audio device")
		}
	}
	return Result{Changed: s.commit(before, false)}
}

func (s *Service) applyToggleShuffle() Result {
	before := s.state
	s.state.Shuffle = !s.state.Shuffle
	return Result{Changed: s.commit(before, false)}
}

func (s *Service) applyStep(ctx context.Context, step int) Result {
	if s.list.Len() == 0 {
		return Result{Message: "Playlist is empty.", Err: ErrEmptyPlaylist}
	}

	before := s.state
	s.state.CurrentIndex = s.nextIndex(step)
	track, _ := s.list.At(s.state.CurrentIndex)
	if err := s.callSink(ctx, func(c context.Context) error {
		return s.sink.Play(c, track)
	}); err != nil {
		log.Error().Err(err).Str("track", track.Name).Msg("Play failed on audio device")
		s.state.Paused = true
		changed := s.commit(before, false)
		return Result{
			Message: "Audio device error: could not start playback.",
			Changed: changed,
			Err:     ErrDeviceFailure,
		}
	}
	s.state.Paused = false
	return Result{Changed: s.commit(before, false)}
}

func (s *Service) applyDelete(ctx context.Context, idx int) Result {
	if idx < 0 || idx >= s.list.Len() {
		return Result{
			Message: fmt.Sprintf("No song at position %d.", idx),
			Err:     ErrOutOfRange,
		}
	}

	before := s.state
	deletingCurrent := idx == s.state.CurrentIndex
	wasPlaying := deletingCurrent && !s.state.Paused

	if deletingCurrent {
		if err := s.callSink(ctx, s.sink.Stop); err != nil {
			log.Warn().Err(err).Msg("Stop failed on audio device")
		}
		s.state.Paused = true
	}

	removed, err := s.list.RemoveAt(idx)
	if err != nil {
		log.Error().Err(err).Int("index", idx).Msg("Delete failed")
		return Result{Message: fmt.Sprintf("Error deleting song: %v", err), Err: err}
	}

	switch {
	case s.list.Len() == 0:
		s.state.CurrentIndex = -1
		s.state.Paused = true
	case idx < s.state.CurrentIndex:
		// Keep pointing at the same (shifted) track.
		s.state.CurrentIndex--
	case deletingCurrent:
		if idx >= s.list.Len() {
			s.state.CurrentIndex = 0
		} else {
			s.state.CurrentIndex = idx
		}
		if wasPlaying {
			track, _ := s.list.At(s.state.CurrentIndex)
			if err := s.callSink(ctx, func(c context.Context) error {
				return s.sink.Play(c, track)
			}); err != nil {
				log.Error().Err(err).Str("track", track.Name).Msg("Play failed on audio device")
			} else {
				s.state.Paused = false
			}
		}
	}

	s.commit(before, true)
	log.Info().Str("track", removed.Name).Int("index", idx).Msg("Track deleted")
	return Result{Message: "Song deleted.", Changed: true}
}

// autoAdvance reacts to a device track-end event: same movement as "next",
// skipped while paused or when the playlist is empty.
func (s *Service) autoAdvance(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Paused || s.list.Len() == 0 {
		return
	}

	before := s.state
	s.state.CurrentIndex = s.nextIndex(+1)
	track, _ := s.list.At(s.state.CurrentIndex)
	log.Info().Str("track", track.Name).Msg("Track ended, advancing")
	if err := s.callSink(ctx, func(c context.Context) error {
		return s.sink.Play(c, track)
	}); err != nil {
		log.Error().Err(err).Str("track", track.Name).Msg("Auto-advance failed on audio device")
		s.state.Paused = true
	}
	s.commit(before, false)
}

// --- Internals (mutex held) ---

// nextIndex computes the target of a next/back movement. Sequential mode
// wraps circularly; shuffle draws an independent random index distinct
// from the current one whenever more than one track exists. Shuffle keeps
// no history: each call draws fresh, in both directions.
func (s *Service) nextIndex(step int) int {
	n := s.list.Len()
	cur := s.state.CurrentIndex

	if s.state.Shuffle && n > 1 {
		next := cur
		for next == cur {
			next = s.randIndex(n)
		}
		return next
	}

	if cur < 0 {
		if step > 0 {
			return 0
		}
		return n - 1
	}
	return ((cur+step)%n + n) % n
}

// commit finalizes a mutation: if any field changed (or the song list
// did), the version is bumped, the state is persisted best-effort and a
// notification is published. Returns whether anything was committed.
func (s *Service) commit(before State, songsChanged bool) bool {
	if sameFields(before, s.state) && !songsChanged {
		return false
	}

	s.state.Version++
	if s.store != nil {
		if err := s.store.Save(s.state); err != nil {
			log.Warn().Err(err).Msg("State persistence failed, continuing in-memory")
		}
	}

	n := Notification{Version: s.state.Version, State: s.state.Snapshot()}
	if songsChanged {
		n.Songs = s.songSnapshots()
	}
	s.publish(n)
	return true
}

// publish hands a notification to the hub without ever blocking the
// command path. Only the latest state matters, so under backpressure the
// oldest queued notification is discarded.
func (s *Service) publish(n Notification) {
	for {
		select {
		case s.notifs <- n:
			return
		default:
		}
		select {
		case <-s.notifs:
		default:
		}
	}
}

func (s *Service) songSnapshots() []SongSnapshot {
	tracks := s.list.Tracks()
	songs := make([]SongSnapshot, len(tracks))
	for i, t := range tracks {
		songs[i] = SongSnapshot{Name: t.Name, Duration: FormatDuration(t.DurationSeconds)}
	}
	return songs
}

func (s *Service) callSink(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()
	return fn(c)
}

func sameTrackIDs(a, b []Track) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
