// internal/player/mock.go
package player

import (
	"sync"
	"time"

	"github.com/llehouerou/reel/internal/subtitle"
)

// SeekCall records one Seek on the mock backend.
type SeekCall struct {
	Pos      Position
	Accurate bool
}

// RangeSeekCall records one SeekRange on the mock backend.
type RangeSeekCall struct {
	Rate  float64
	Start time.Duration
	Stop  time.Duration
}

// MockBackend is a test double for Backend. Samples are served from a
// buffered queue so tests control exactly when the decode worker sees a
// frame.
type MockBackend struct {
	mu sync.Mutex

	caps    Caps
	capsErr error

	playing  bool
	playErr  error
	position time.Duration
	posErr   error

	samples chan *Sample
	subs    []*subtitle.Cue

	messages []Message

	seeks        []SeekCall
	rangeSeeks   []RangeSeekCall
	seekErr      error
	rangeSeekErr error

	// framesPerSeek, when nonzero, enqueues that many synthetic frames
	// after every Seek, mimicking a pipeline that prerolls post-flush.
	framesPerSeek int

	volume      float64
	muted       bool
	avOffsets   []time.Duration
	subURI      string
	subsEnabled bool

	playCalls []bool
	closed    bool
}

// NewMockBackend creates a mock backend advertising a 640x360, 30fps,
// 10-second stream.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		caps: Caps{
			Width:     640,
			Height:    360,
			Framerate: 30,
			Duration:  10 * time.Second,
		},
		samples: make(chan *Sample, 64),
	}
}

func (m *MockBackend) Caps() (Caps, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps, m.capsErr
}

func (m *MockBackend) SetPlaying(playing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = playing
	m.playCalls = append(m.playCalls, playing)
	return nil
}

func (m *MockBackend) PullSample(timeout time.Duration) (*Sample, error) {
	return m.pull(timeout)
}

func (m *MockBackend) TryPreroll(timeout time.Duration) (*Sample, error) {
	return m.pull(timeout)
}

func (m *MockBackend) pull(timeout time.Duration) (*Sample, error) {
	select {
	case s := <-m.samples:
		return s, nil
	case <-time.After(timeout):
		return nil, ErrPullTimeout
	}
}

func (m *MockBackend) PullSubtitle() *subtitle.Cue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) == 0 {
		return nil
	}
	cue := m.subs[0]
	m.subs = m.subs[1:]
	return cue
}

func (m *MockBackend) Seek(pos Position, accurate bool) error {
	m.mu.Lock()
	if m.seekErr != nil {
		err := m.seekErr
		m.mu.Unlock()
		return err
	}
	m.seeks = append(m.seeks, SeekCall{Pos: pos, Accurate: accurate})
	if !pos.IsFrame() {
		m.position = pos.Time()
	}
	n := m.framesPerSeek
	pts := m.position
	m.mu.Unlock()

	for i := 0; i < n; i++ {
		m.QueueSampleAt(pts + time.Duration(i)*33*time.Millisecond)
	}
	return nil
}

func (m *MockBackend) SeekRange(rate float64, start, stop time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rangeSeekErr != nil {
		return m.rangeSeekErr
	}
	m.rangeSeeks = append(m.rangeSeeks, RangeSeekCall{Rate: rate, Start: start, Stop: stop})
	return nil
}

func (m *MockBackend) QueryPosition() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.posErr != nil {
		return 0, m.posErr
	}
	return m.position, nil
}

func (m *MockBackend) QueryDuration() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps.Duration, nil
}

func (m *MockBackend) PollMessage() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	return msg
}

func (m *MockBackend) SetVolume(volume float64) {
	m.mu.Lock()
	m.volume = volume
	m.mu.Unlock()
}

func (m *MockBackend) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
}

func (m *MockBackend) SetAVOffset(offset time.Duration) {
	m.mu.Lock()
	m.avOffsets = append(m.avOffsets, offset)
	m.mu.Unlock()
}

func (m *MockBackend) SetSubtitleURI(uri string) error {
	m.mu.Lock()
	m.subURI = uri
	m.mu.Unlock()
	return nil
}

func (m *MockBackend) SetSubtitlesEnabled(enabled bool) {
	m.mu.Lock()
	m.subsEnabled = enabled
	m.mu.Unlock()
}

func (m *MockBackend) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Test helpers

// QueueSample enqueues a raw sample for the decode worker.
func (m *MockBackend) QueueSample(s *Sample) { m.samples <- s }

// QueueSampleAt enqueues a synthetic NV12 sample with the given PTS,
// sized to the advertised caps.
func (m *MockBackend) QueueSampleAt(pts time.Duration) {
	m.mu.Lock()
	w, h := m.caps.Width, m.caps.Height
	m.mu.Unlock()
	m.samples <- &Sample{
		Data:     make([]byte, w*h*3/2),
		Width:    w,
		Height:   h,
		Stride:   w,
		PTS:      pts,
		Duration: 33 * time.Millisecond,
	}
}

// QueueSubtitle enqueues a subtitle cue for the worker's non-blocking poll.
func (m *MockBackend) QueueSubtitle(cue *subtitle.Cue) {
	m.mu.Lock()
	m.subs = append(m.subs, cue)
	m.mu.Unlock()
}

// QueueMessage enqueues a bus message.
func (m *MockBackend) QueueMessage(msg Message) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
}

func (m *MockBackend) SetCaps(caps Caps)           { m.mu.Lock(); m.caps = caps; m.mu.Unlock() }
func (m *MockBackend) SetCapsError(err error)      { m.mu.Lock(); m.capsErr = err; m.mu.Unlock() }
func (m *MockBackend) SetPosition(d time.Duration) { m.mu.Lock(); m.position = d; m.mu.Unlock() }
func (m *MockBackend) SetPositionError(err error)  { m.mu.Lock(); m.posErr = err; m.mu.Unlock() }
func (m *MockBackend) SetSeekError(err error)      { m.mu.Lock(); m.seekErr = err; m.mu.Unlock() }
func (m *MockBackend) SetRangeSeekError(err error) { m.mu.Lock(); m.rangeSeekErr = err; m.mu.Unlock() }
func (m *MockBackend) SetFramesPerSeek(n int)      { m.mu.Lock(); m.framesPerSeek = n; m.mu.Unlock() }

func (m *MockBackend) Playing() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.playing }
func (m *MockBackend) Closed() bool  { m.mu.Lock(); defer m.mu.Unlock(); return m.closed }
func (m *MockBackend) MutedState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *MockBackend) SubtitleURI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subURI
}

func (m *MockBackend) SubtitlesOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subsEnabled
}

func (m *MockBackend) Seeks() []SeekCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SeekCall(nil), m.seeks...)
}

func (m *MockBackend) RangeSeeks() []RangeSeekCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RangeSeekCall(nil), m.rangeSeeks...)
}

func (m *MockBackend) AVOffsets() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.avOffsets...)
}

// Verify MockBackend implements Backend at compile time.
var _ Backend = (*MockBackend)(nil)
