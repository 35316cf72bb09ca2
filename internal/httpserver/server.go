// internal/httpserver/server.go
//
// HTTP server wiring for the gallery backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access log).
//   - Public endpoints: "/", "/health", "/debug/sessions".
//   - Table endpoints under /game: start, snapshot, hit, miss, weapon, home,
//     commentary.
//
// Notes:
//   - /game/start creates a table and a session token when the caller has
//     none; every other /game route requires a live table.
//   - Shots the engine refuses are answered 200 with applied=false; the
//     client is expected to gate input itself.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/explosion-station/internal/commentary"
	"github.com/robalobadob/explosion-station/internal/game"
	"github.com/robalobadob/explosion-station/internal/rules"
	"github.com/robalobadob/explosion-station/internal/store"
)

// Config carries everything the server needs besides the store.
type Config struct {
	Rules         rules.Rules
	Commentary    commentary.Service
	Secret        []byte
	TokenTTL      time.Duration
	CookieName    string
	ClientOrigin  string
	SecureCookies bool
}

// Server bundles router, table store and configuration.
type Server struct {
	r     *chi.Mux
	store store.Store
	cfg   Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, cfg Config) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "boom_session"
	}
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "http://localhost:5173"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.Commentary == nil {
		cfg.Commentary = commentary.Offline{}
	}
	s := &Server{r: chi.NewRouter(), store: st, cfg: cfg}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                       // one log line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin))          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"explosion-station","endpoints":["/health","POST /game/start","GET /game","POST /game/hit","POST /game/miss","POST /game/weapon","POST /game/home","GET /game/commentary"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"tables": s.store.Len()})
	})

	s.r.Route("/game", func(r chi.Router) {
		r.Use(s.withTable())
		r.Post("/start", s.handleStart)

		r.Group(func(r chi.Router) {
			r.Use(s.requireTable())
			r.Get("/", s.handleSnapshot)
			r.Post("/hit", s.handleHit)
			r.Post("/miss", s.handleMiss)
			r.Post("/weapon", s.handleWeapon)
			r.Post("/home", s.handleHome)
			r.Get("/commentary", s.handleCommentary)
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Handler exposes the router (used by main and tests).
func (s *Server) Handler() http.Handler { return s.r }

// newTable builds an engine with its own commentary throttler.
func (s *Server) newTable() *game.Engine {
	id := game.NewID()
	th := commentary.NewThrottler(s.cfg.Commentary, s.cfg.Rules.Commentary, commentary.WithSessionID(id))
	return game.New(id, s.cfg.Rules, th)
}

// ------------------------------ payloads ------------------------------------

type startReq struct {
	Name string `json:"name"`
}

type startRes struct {
	Token string        `json:"token,omitempty"`
	Game  game.Snapshot `json:"game"`
}

type hitReq struct {
	BalloonID string  `json:"balloonId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type missReq struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type weaponReq struct {
	Weapon string `json:"weapon"`
}

type shotRes struct {
	Applied       bool          `json:"applied"`
	Reason        string        `json:"reason,omitempty"`
	Events        []game.Event  `json:"events"`
	LevelComplete bool          `json:"levelComplete"`
	GameOver      bool          `json:"gameOver"`
	Game          game.Snapshot `json:"game"`
}

// ------------------------------ handlers ------------------------------------

// handleStart seats a player, creating the table and token on first visit.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, `{"error":"name_required"}`, http.StatusBadRequest)
		return
	}

	var res startRes
	e := tableFrom(r)
	if e == nil {
		e = s.newTable()
		if err := s.store.Save(r.Context(), e); err != nil {
			log.Error().Err(err).Msg("save table")
			http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
			return
		}
		tok, exp, err := s.signToken(e.ID)
		if err != nil {
			log.Error().Err(err).Msg("sign session token")
			http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
			return
		}
		s.setSessionCookie(w, tok, exp)
		res.Token = tok
	}

	if err := e.Start(req.Name); err != nil {
		switch {
		case errors.Is(err, game.ErrEmptyName):
			http.Error(w, `{"error":"name_required"}`, http.StatusBadRequest)
		case errors.Is(err, game.ErrInvalidTransition):
			http.Error(w, `{"error":"already_playing"}`, http.StatusConflict)
		default:
			http.Error(w, `{"error":"start_failed"}`, http.StatusInternalServerError)
		}
		return
	}
	res.Game = e.Snapshot()
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(tableFrom(r).Snapshot())
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	var req hitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e := tableFrom(r)
	s.writeShot(w, e, e.Hit(req.BalloonID, game.Point{X: req.X, Y: req.Y}))
}

func (s *Server) handleMiss(w http.ResponseWriter, r *http.Request) {
	var req missReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e := tableFrom(r)
	s.writeShot(w, e, e.Miss(game.Point{X: req.X, Y: req.Y}))
}

func (s *Server) writeShot(w http.ResponseWriter, e *game.Engine, res game.Result) {
	out := shotRes{
		Applied:       res.Applied,
		Events:        res.Events,
		LevelComplete: res.LevelComplete,
		GameOver:      res.GameOver,
		Game:          e.Snapshot(),
	}
	if out.Events == nil {
		out.Events = []game.Event{}
	}
	if res.Reason != nil {
		out.Reason = res.Reason.Error()
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleWeapon(w http.ResponseWriter, r *http.Request) {
	var req weaponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e := tableFrom(r)
	if err := e.SelectWeapon(req.Weapon); err != nil {
		switch {
		case errors.Is(err, game.ErrUnknownWeapon):
			http.Error(w, `{"error":"unknown_weapon"}`, http.StatusBadRequest)
		default:
			http.Error(w, `{"error":"not_seated"}`, http.StatusConflict)
		}
		return
	}
	_ = json.NewEncoder(w).Encode(e.Snapshot())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	e := tableFrom(r)
	e.GoHome()
	_ = json.NewEncoder(w).Encode(e.Snapshot())
}

func (s *Server) handleCommentary(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(tableFrom(r).Commentary())
}
