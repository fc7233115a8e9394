package board

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

// Phase is the display state of a popup notification.
type Phase string

const (
	PhaseVisible Phase = "visible"
	PhaseFading  Phase = "fading"
	PhaseHidden  Phase = "hidden"
)

// Notice is one popup display update.
type Notice struct {
	Event   wish.Event `json:"event"`
	Message string     `json:"message"`
	Phase   Phase      `json:"phase"`
}

// PopupOptions configures a Popup.
type PopupOptions struct {
	Limit        int           // events fetched per poll, default 10
	PollInterval time.Duration // default 3s
	Visible      time.Duration // default 2.7s
	Fade         time.Duration // default 0.3s
	Logger       zerolog.Logger
}

// Popup shows new events one at a time. An event ID is never shown twice.
type Popup struct {
	backend Backend
	limit   int
	poll    time.Duration
	visible time.Duration
	fade    time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	queue  []wish.Event
	queued map[int64]bool
	shown  map[int64]bool
	floor  int64 // every ID at or below floor counts as shown
	wake   chan struct{}
}

// NewPopup returns a Popup reading through b.
func NewPopup(b Backend, opts PopupOptions) *Popup {
	p := &Popup{
		backend: b,
		limit:   opts.Limit,
		poll:    opts.PollInterval,
		visible: opts.Visible,
		fade:    opts.Fade,
		log:     opts.Logger,
		queued:  make(map[int64]bool),
		shown:   make(map[int64]bool),
		wake:    make(chan struct{}, 1),
	}
	if p.limit <= 0 {
		p.limit = ops.DefaultFeedLimit
	}
	if p.poll <= 0 {
		p.poll = 3 * time.Second
	}
	if p.visible <= 0 {
		p.visible = 2700 * time.Millisecond
	}
	if p.fade <= 0 {
		p.fade = 300 * time.Millisecond
	}
	return p
}

// Refill queues events that were neither shown nor already queued. events
// arrive newest first; they are queued oldest first so they show in order.
// It returns how many were added.
func (p *Popup) Refill(events []wish.Event) int {
	p.mu.Lock()
	added := 0
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.ID <= p.floor || p.shown[e.ID] || p.queued[e.ID] {
			continue
		}
		p.queued[e.ID] = true
		p.queue = append(p.queue, e)
		added++
	}
	p.mu.Unlock()

	if added > 0 {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return added
}

// Next dequeues the next event and marks it shown.
func (p *Popup) Next() (wish.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return wish.Event{}, false
	}
	e := p.queue[0]
	p.queue = p.queue[1:]
	delete(p.queued, e.ID)
	p.shown[e.ID] = true
	p.pruneShownLocked()
	return e, true
}

// pruneShownLocked keeps the shown set bounded to twice the fetch limit.
// Event IDs grow over time, so older IDs fold into floor.
func (p *Popup) pruneShownLocked() {
	keep := 2 * p.limit
	if len(p.shown) <= keep {
		return
	}
	ids := make([]int64, 0, len(p.shown))
	for id := range p.shown {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids[:len(ids)-keep] {
		delete(p.shown, id)
		p.floor = max(p.floor, id)
	}
}

// Pending returns the number of queued events.
func (p *Popup) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Fetch polls the store once and refills the queue. Failures are logged.
func (p *Popup) Fetch(ctx context.Context) error {
	events, err := p.backend.RecentEvents(ctx, p.limit)
	if err != nil {
		p.log.Debug().Err(err).Msg("popup refill failed")
		return err
	}
	p.Refill(events)
	return nil
}

// Run polls for events in the background and shows them one at a time
// through show: visible, then fading, then hidden. It returns when ctx is done.
func (p *Popup) Run(ctx context.Context, show func(Notice)) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Poll(ctx, p.poll, func(ctx context.Context) {
			_ = p.Fetch(ctx)
		})
	}()
	defer wg.Wait()

	for {
		e, ok := p.Next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
				continue
			}
		}

		msg := ops.ActivityMessage(e)
		show(Notice{Event: e, Message: msg, Phase: PhaseVisible})
		if !sleep(ctx, p.visible) {
			return
		}
		show(Notice{Event: e, Message: msg, Phase: PhaseFading})
		if !sleep(ctx, p.fade) {
			return
		}
		show(Notice{Event: e, Message: msg, Phase: PhaseHidden})
	}
}
