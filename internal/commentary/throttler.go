// internal/commentary/throttler.go
//
// Throttler decides when a new stall-owner line is fetched.
//
// Policy:
//   - A non-forced request inside the cooldown window is dropped silently.
//   - Any request that is not dropped stamps the cooldown cursor at once,
//     whether the service later succeeds or fails.
//   - The service runs on its own goroutine; the caller never waits.
//   - Failures are replaced by a random canned line in the cheeky mood.
//   - The intro is never throttled and seeds the cursor when it lands.
//
// Every fetch is tagged with the generation it was started in. Reset and
// Close bump the generation, so results that arrive for a previous player
// are dropped instead of overwriting the new table's commentary.

package commentary

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/explosion-station/internal/rules"
)

// Status is what the client renders in the speech bubble.
type Status struct {
	Commentary *Commentary `json:"commentary"`
	Loading    bool        `json:"loading"`
}

// Throttler paces calls to a Service for one table.
type Throttler struct {
	svc       Service
	cooldown  time.Duration
	timeout   time.Duration
	fallback  []string
	manifesto string
	now       func() time.Time
	sid       string

	mu       sync.Mutex // guards everything below
	rng      *rand.Rand
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	last     time.Time
	current  *Commentary
	inflight int
	closed   bool

	wg sync.WaitGroup
}

// Option customises a Throttler.
type Option func(*Throttler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Throttler) { t.now = now }
}

// WithRand sets the source used to pick fallback lines.
func WithRand(r *rand.Rand) Option {
	return func(t *Throttler) { t.rng = r }
}

// WithSessionID tags log lines with the owning session.
func WithSessionID(sid string) Option {
	return func(t *Throttler) { t.sid = sid }
}

// NewThrottler builds a throttler around svc using the commentary rules.
func NewThrottler(svc Service, cfg rules.Commentary, opts ...Option) *Throttler {
	if svc == nil {
		svc = Offline{}
	}
	t := &Throttler{
		svc:       svc,
		cooldown:  cfg.Cooldown(),
		timeout:   cfg.RequestTimeout(),
		fallback:  cfg.FallbackLines,
		manifesto: cfg.IntroManifesto,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(t)
	}
	if t.timeout <= 0 {
		t.timeout = 8 * time.Second
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t
}

// Request asks for a reaction line. It reports whether a fetch was started;
// false means the request fell inside the cooldown or the throttler is closed.
func (t *Throttler) Request(req Request) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	now := t.now()
	if !req.Force && !t.last.IsZero() && now.Sub(t.last) < t.cooldown {
		t.mu.Unlock()
		log.Debug().Str("sid", t.sid).Str("event", req.Event).Msg("commentary dropped by cooldown")
		return false
	}
	t.last = now
	gen, ctx := t.begin()
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		cctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		c, err := t.svc.GenerateReaction(cctx, req.Event, req.Score, req.Ammo, req.PlayerName)
		if err != nil || c.Text == "" {
			log.Warn().Err(err).Str("sid", t.sid).Str("event", req.Event).Msg("commentary fetch failed, using canned line")
			t.finish(gen, nil, false)
			return
		}
		if !c.Mood.Valid() {
			c.Mood = MoodCheeky
		}
		t.finish(gen, &c, false)
	}()
	return true
}

// Intro fetches the greeting for a newly seated player. It ignores the
// cooldown and stamps the cursor when the line arrives.
func (t *Throttler) Intro(playerName string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	gen, ctx := t.begin()
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		cctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		text, err := t.svc.GenerateIntro(cctx, playerName)
		if err != nil || text == "" {
			log.Warn().Err(err).Str("sid", t.sid).Msg("intro fetch failed, using manifesto")
			text = t.manifesto
		}
		if text == "" {
			t.finish(gen, nil, true)
			return
		}
		t.finish(gen, &Commentary{Text: text, Mood: MoodHappy}, true)
	}()
}

// begin registers an in-flight fetch. Callers hold t.mu.
func (t *Throttler) begin() (uint64, context.Context) {
	t.inflight++
	t.wg.Add(1)
	return t.gen, t.ctx
}

// finish publishes a result for generation gen. A nil c selects a canned
// line. Stale generations are discarded.
func (t *Throttler) finish(gen uint64, c *Commentary, seed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.closed {
		return
	}
	t.inflight--
	if c == nil {
		c = t.cannedLine()
	}
	if c != nil {
		t.current = c
	}
	if seed {
		t.last = t.now()
	}
}

// cannedLine picks a fallback line. Callers hold t.mu.
func (t *Throttler) cannedLine() *Commentary {
	if len(t.fallback) == 0 {
		return nil
	}
	return &Commentary{Text: t.fallback[t.rng.IntN(len(t.fallback))], Mood: MoodCheeky}
}

// Status returns the line on display and whether a fetch is pending.
func (t *Throttler) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{Loading: t.inflight > 0}
	if t.current != nil {
		c := *t.current
		st.Commentary = &c
	}
	return st
}

// Reset forgets the current line and cooldown and abandons in-flight
// fetches. Called whenever the table changes hands or returns home.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.cancel()
	t.gen++
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.last = time.Time{}
	t.current = nil
	t.inflight = 0
}

// Close abandons in-flight fetches and refuses new ones.
func (t *Throttler) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.gen++
	t.cancel()
	t.inflight = 0
}

// Wait blocks until every started fetch has returned.
func (t *Throttler) Wait() { t.wg.Wait() }
