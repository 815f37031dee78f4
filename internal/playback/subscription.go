package playback

const eventBufferSize = 16

// Subscription provides event channels for a subscriber. Sends are
// non-blocking; events are dropped when a buffer is full rather than
// stalling the poll tick.
type Subscription struct {
	FrameReady  <-chan FrameEvent
	Subtitle    <-chan SubtitleEvent
	EndOfStream <-chan EndOfStreamEvent
	Error       <-chan ErrorEvent
	Done        <-chan struct{}

	// Internal write channels
	frameCh    chan FrameEvent
	subtitleCh chan SubtitleEvent
	eosCh      chan EndOfStreamEvent
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		frameCh:    make(chan FrameEvent, eventBufferSize),
		subtitleCh: make(chan SubtitleEvent, eventBufferSize),
		eosCh:      make(chan EndOfStreamEvent, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.FrameReady = s.frameCh
	s.Subtitle = s.subtitleCh
	s.EndOfStream = s.eosCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendFrame(e FrameEvent) {
	select {
	case s.frameCh <- e:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendSubtitle(e SubtitleEvent) {
	select {
	case s.subtitleCh <- e:
	default:
	}
}

func (s *Subscription) sendEOS(e EndOfStreamEvent) {
	select {
	case s.eosCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
