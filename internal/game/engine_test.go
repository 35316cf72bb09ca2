package game

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/robalobadob/explosion-station/internal/commentary"
	"github.com/robalobadob/explosion-station/internal/rules"
)

// recordingNarrator captures what the engine asks of the stall owner.
type recordingNarrator struct {
	mu       sync.Mutex
	requests []commentary.Request
	intros   []string
	resets   int
	closed   bool
}

func (n *recordingNarrator) Request(req commentary.Request) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return true
}

func (n *recordingNarrator) Intro(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intros = append(n.intros, name)
}

func (n *recordingNarrator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets++
	n.requests = nil
}

func (n *recordingNarrator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
}

func (n *recordingNarrator) Status() commentary.Status { return commentary.Status{} }

func (n *recordingNarrator) last() commentary.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests[len(n.requests)-1]
}

func newTestEngine(t *testing.T) (*Engine, *recordingNarrator) {
	t.Helper()
	n := &recordingNarrator{}
	e := New("table-1", rules.Default(), n, WithRand(rand.New(rand.NewPCG(11, 13))))
	return e, n
}

func startedEngine(t *testing.T) (*Engine, *recordingNarrator) {
	t.Helper()
	e, n := newTestEngine(t)
	if err := e.Start("  Ana  "); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	return e, n
}

func TestEngineStart(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		e, n := newTestEngine(t)
		if err := e.Start("   "); !errors.Is(err, ErrEmptyName) {
			t.Fatalf("expected ErrEmptyName, got %v", err)
		}
		if s := e.Snapshot(); s.State.Status != StatusStart || len(s.Balloons) != 0 {
			t.Errorf("rejected start changed state: %+v", s.State)
		}
		if len(n.intros) != 0 {
			t.Error("intro fired for rejected start")
		}
	})

	t.Run("seats the player", func(t *testing.T) {
		e, n := startedEngine(t)
		s := e.Snapshot()
		want := State{PlayerName: "Ana", Ammo: 5, Lives: 5, Level: 1, Status: StatusPlaying, Weapon: WeaponRifle}
		if s.State != want {
			t.Errorf("state = %+v, want %+v", s.State, want)
		}
		if len(s.Balloons) != 60 {
			t.Errorf("expected 60 balloons, got %d", len(s.Balloons))
		}
		if len(n.intros) != 1 || n.intros[0] != "Ana" {
			t.Errorf("intro calls = %v", n.intros)
		}
		if n.resets != 1 {
			t.Errorf("expected narrator reset on start, got %d", n.resets)
		}
	})

	t.Run("not while playing", func(t *testing.T) {
		e, n := startedEngine(t)
		if err := e.Start("Bob"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if e.Snapshot().State.PlayerName != "Ana" {
			t.Error("player replaced mid-game")
		}
		if len(n.intros) != 1 {
			t.Error("intro fired twice")
		}
	})
}

func TestEngineMissUntilGameOver(t *testing.T) {
	e, n := startedEngine(t)

	for i := 1; i <= 5; i++ {
		res := e.Miss(Point{})
		if !res.Applied {
			t.Fatalf("miss %d rejected: %v", i, res.Reason)
		}
		if got := e.Snapshot().State.Ammo; got != 5-i {
			t.Fatalf("after miss %d ammo = %d", i, got)
		}
	}
	s := e.Snapshot()
	if s.State.Status != StatusGameOver || s.State.Ammo != 0 {
		t.Fatalf("status/ammo = %s/%d", s.State.Status, s.State.Ammo)
	}
	if s.Cause == "" {
		t.Error("game over without a cause")
	}
	if last := n.last(); !last.Force {
		t.Errorf("out-of-ammo commentary should be forced: %+v", last)
	}

	seq := s.Seq
	if res := e.Miss(Point{}); res.Applied || !errors.Is(res.Reason, ErrNotPlaying) {
		t.Errorf("miss after game over = %+v", res)
	}
	if e.Snapshot().Seq != seq {
		t.Error("ignored shot advanced seq")
	}
}

func TestEngineHazardOnLastLife(t *testing.T) {
	e, _ := startedEngine(t)
	e.mu.Lock()
	e.state.Lives = 1
	e.balloons = fixedGrid(20, 1)
	e.mu.Unlock()

	res := e.Hit("h0", Point{})
	if !res.Applied || !res.GameOver {
		t.Fatalf("expected game over, got %+v", res)
	}
	s := e.Snapshot()
	if s.State.Lives != 0 || s.State.Status != StatusGameOver || s.State.Ammo != 5 {
		t.Errorf("state = %+v", s.State)
	}
	if !strings.Contains(s.Cause, "Junnel Tax") {
		t.Errorf("cause = %q", s.Cause)
	}
}

func TestEngineLevelComplete(t *testing.T) {
	e, n := startedEngine(t)
	e.mu.Lock()
	e.balloons = fixedGrid(8, 4)
	e.mu.Unlock()

	e.Miss(Point{})
	e.Hit("n0", Point{})
	res := e.Hit("n1", Point{})
	if res.LevelComplete {
		t.Fatal("level completed too early")
	}

	e.mu.Lock()
	e.balloons = fixedGrid(6, 4)
	e.mu.Unlock()
	res = e.Hit("n0", Point{})
	if !res.Applied || !res.LevelComplete {
		t.Fatalf("expected level complete, got %+v", res)
	}

	s := e.Snapshot()
	if s.State.Level != 2 || s.State.Ammo != 5 || s.State.Streak != 0 {
		t.Errorf("level/ammo/streak = %d/%d/%d, want 2/5/0", s.State.Level, s.State.Ammo, s.State.Streak)
	}
	if s.State.Score != 3 {
		t.Errorf("score lost across levels: %d", s.State.Score)
	}
	if len(s.Balloons) != 60 {
		t.Fatalf("new grid has %d balloons", len(s.Balloons))
	}
	for _, b := range s.Balloons {
		if b.Popped || !strings.HasPrefix(b.ID, "b-2-") {
			t.Fatalf("unexpected balloon in level 2 grid: %+v", b)
		}
	}
	if last := n.last(); !last.Force || !strings.Contains(last.Event, "Stage cleared") {
		t.Errorf("last request = %+v", last)
	}
}

func TestEngineGoHomeRoundTrip(t *testing.T) {
	e, n := startedEngine(t)
	e.mu.Lock()
	e.state.Score = 30
	e.state.HasTeddy, e.state.HasConsolation, e.state.HasMiniPrize = true, true, true
	e.state.Level = 4
	e.state.Weapon = WeaponSniper
	e.mu.Unlock()
	e.Miss(Point{})

	e.GoHome()
	s := e.Snapshot()
	if s.State != e.initialState() {
		t.Errorf("home state = %+v", s.State)
	}
	if s.State.PlayerName != "" || len(s.Balloons) != 0 || s.Cause != "" {
		t.Errorf("session leaked after home: %+v", s)
	}
	if n.resets != 2 {
		t.Errorf("expected narrator reset on home, resets=%d", n.resets)
	}

	if err := e.Start("Bob"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	got := e.Snapshot().State
	want := State{PlayerName: "Bob", Ammo: 5, Lives: 5, Level: 1, Status: StatusPlaying, Weapon: WeaponRifle}
	if got != want {
		t.Errorf("restart state = %+v, want %+v", got, want)
	}
}

func TestEngineGoHomeFromStartIsNoop(t *testing.T) {
	e, n := newTestEngine(t)
	before := e.Snapshot()

	e.GoHome()
	after := e.Snapshot()
	if after.Seq != before.Seq || after.State != before.State {
		t.Errorf("home on start screen changed the table: %+v -> %+v", before, after)
	}
	if n.resets != 0 {
		t.Errorf("home on start screen reset the narrator %d times", n.resets)
	}

	if err := e.Start("Ana"); err != nil {
		t.Fatal(err)
	}
	e.GoHome()
	e.GoHome()
	if n.resets != 2 {
		t.Errorf("expected one reset for start and one for home, got %d", n.resets)
	}
}

func TestEnginePlayAgainFromGameOver(t *testing.T) {
	e, _ := startedEngine(t)
	for i := 0; i < 5; i++ {
		e.Miss(Point{})
	}
	if err := e.Start("Ana"); err != nil {
		t.Fatalf("play again: %v", err)
	}
	s := e.Snapshot()
	if s.State.Status != StatusPlaying || s.State.Ammo != 5 || s.Cause != "" {
		t.Errorf("play again state = %+v cause=%q", s.State, s.Cause)
	}
}

func TestEngineSelectWeapon(t *testing.T) {
	e, n := newTestEngine(t)
	if err := e.SelectWeapon("sniper"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("weapon at start: %v", err)
	}

	if err := e.Start("Ana"); err != nil {
		t.Fatal(err)
	}
	if err := e.SelectWeapon("bazooka"); !errors.Is(err, ErrUnknownWeapon) {
		t.Errorf("unknown weapon: %v", err)
	}
	if err := e.SelectWeapon("ak47"); err != nil {
		t.Fatalf("SelectWeapon() error: %v", err)
	}
	s := e.Snapshot()
	if s.State.Weapon != WeaponAK47 {
		t.Errorf("weapon = %s", s.State.Weapon)
	}
	if s.State.Score != 0 || s.State.Ammo != 5 {
		t.Errorf("weapon change touched the scoreboard: %+v", s.State)
	}
	if last := n.last(); !last.Force || !strings.Contains(last.Event, "ak47") {
		t.Errorf("weapon commentary = %+v", last)
	}
}

func TestEngineInvariantsUnderRandomPlay(t *testing.T) {
	e, _ := startedEngine(t)
	dice := rand.New(rand.NewPCG(5, 8))
	prev := e.Snapshot().State

	for step := 0; step < 3000; step++ {
		s := e.Snapshot()
		if s.State.Status == StatusGameOver {
			if err := e.Start("Ana"); err != nil {
				t.Fatal(err)
			}
			prev = e.Snapshot().State
			continue
		}

		var res Result
		if dice.IntN(4) == 0 {
			res = e.Miss(Point{})
		} else {
			var open []string
			for _, b := range s.Balloons {
				if !b.Popped {
					open = append(open, b.ID)
				}
			}
			res = e.Hit(open[dice.IntN(len(open))], Point{})
		}
		if !res.Applied {
			t.Fatalf("step %d: shot rejected: %v", step, res.Reason)
		}

		cur := e.Snapshot().State
		if cur.Score < prev.Score {
			t.Fatalf("step %d: score decreased %d → %d", step, prev.Score, cur.Score)
		}
		if cur.Lives > prev.Lives || cur.Lives < 0 {
			t.Fatalf("step %d: lives %d → %d", step, prev.Lives, cur.Lives)
		}
		if !res.LevelComplete && cur.Ammo > prev.Ammo {
			t.Fatalf("step %d: ammo grew without a level change", step)
		}
		if res.LevelComplete && cur.Level != prev.Level+1 {
			t.Fatalf("step %d: level %d → %d", step, prev.Level, cur.Level)
		}
		if (prev.HasTeddy && !cur.HasTeddy) || (prev.HasConsolation && !cur.HasConsolation) || (prev.HasMiniPrize && !cur.HasMiniPrize) {
			t.Fatalf("step %d: prize flag reverted", step)
		}
		prev = cur
	}
}

func TestEngineClose(t *testing.T) {
	e, n := startedEngine(t)
	e.Close()
	if !n.closed {
		t.Error("Close did not reach the narrator")
	}
}
