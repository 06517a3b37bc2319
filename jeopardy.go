// Jeopardy board sessions
//
// Every game lives at /path/:gameid and is driven over /path/:gameid/ws.
// The server owns the board: the browser asks to start a game or reveal a
// cell, and draws whatever view, grid and cell updates it is sent back.
//
// Features:
// - One hub goroutine per game ID owning a jeopardy.Controller
// - Boards are loaded from the trivia API one category at a time
// - Starting again while a board is loading cancels the older load
// - A failed load shows an error and lets the player try again
// - Clicking a cell reveals its question, then its answer, then nothing
// - Reconnecting browsers get the current view and grid
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/jeopardy/games/jeopardy"
)

const gamePath = "/jeopardy"

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`          // "start", "reveal"
	Row  *int   `json:"row,omitempty"` // reveal
	Col  *int   `json:"col,omitempty"` // reveal
}

// ViewMessage carries the start button, spinner, grid visibility and error.
type ViewMessage struct {
	Type string `json:"type"` // "view"
	jeopardy.View
}

// GridMessage replaces the whole board.
type GridMessage struct {
	Type string `json:"type"` // "grid"
	jeopardy.Grid
}

// CellMessage updates a single body cell after a reveal.
type CellMessage struct {
	Type string `json:"type"` // "cell"
	jeopardy.Cell
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type loadResult struct {
	grid jeopardy.Grid
	err  error
}

type Hub struct {
	id      string
	clients map[*Client]bool
	ctrl    *jeopardy.Controller

	register chan *Client
	unreg    chan *Client
	starts   chan *Client
	reveals  chan jeopardy.Coord
	loaded   chan loadResult

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(gameID string, ctrl *jeopardy.Controller) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		ctrl:       ctrl,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		starts:     make(chan *Client),
		reveals:    make(chan jeopardy.Coord),
		loaded:     make(chan loadResult),
		ctx:        ctx,
		cancel:     cancel,
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			h.sendLocked(c, ViewMessage{Type: "view", View: h.ctrl.View()})
			if grid, ok := h.ctrl.Grid(); ok {
				h.sendLocked(c, GridMessage{Type: "grid", Grid: grid})
			}
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case <-h.starts:
			h.handleStart(cfg)

		case at := <-h.reveals:
			h.handleReveal(cfg, at)

		case res := <-h.loaded:
			h.handleLoaded(cfg, res)
		}
	}
}

// handleStart switches the board to loading right away, and runs the fetch
// on its own goroutine so the hub keeps serving clients meanwhile.
func (h *Hub) handleStart(cfg *Config) {
	logf(cfg, "GAMES: Loading board for game %s", h.id)

	load := h.ctrl.Begin(h.ctx)

	h.mu.Lock()
	h.lastActive = time.Now()
	h.broadcastLocked(ViewMessage{Type: "view", View: h.ctrl.View()})
	h.mu.Unlock()

	go func() {
		grid, err := load()

		select {
		case h.loaded <- loadResult{grid: grid, err: err}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) handleLoaded(cfg *Config, res loadResult) {
	switch {
	case errors.Is(res.err, jeopardy.ErrSuperseded):
		logf(cfg, "GAMES: Dropped superseded board for game %s", h.id)

		return
	case res.err != nil:
		logf(cfg, "ERROR: Loading board for game %s: %v", h.id, res.err)
	default:
		headers, cells := res.grid.Size()
		logf(cfg, "GAMES: Loaded board for game %s (%d categories, %d cells)", h.id, headers, cells)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if res.err == nil {
		h.broadcastLocked(GridMessage{Type: "grid", Grid: res.grid})
	}
	h.broadcastLocked(ViewMessage{Type: "view", View: h.ctrl.View()})
}

func (h *Hub) handleReveal(cfg *Config, at jeopardy.Coord) {
	cell, changed, err := h.ctrl.Reveal(at)
	if err != nil {
		logf(cfg, "GAMES: Ignored reveal at %s in game %s: %v", at, h.id, err)

		return
	}
	if !changed {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
	h.broadcastLocked(CellMessage{Type: "cell", Cell: cell})
}

// sendLocked queues msg for one client, dropping the client if it has
// fallen too far behind. Assumes h.mu is held.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// closeAll stops any load and disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.cancel()
	h.ctrl.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		_ = client.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated board.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	fetcher     jeopardy.Fetcher
	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

func newGameManager(fetcher jeopardy.Fetcher, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		fetcher:     fetcher,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID, jeopardy.NewController(gm.fetcher, cfg.categories, cfg.clues))
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, 8)
		buf := make([]byte, 16)

		for len(out) < 8 {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= max && len(out) < 8 {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

// reap closes every hub last active before cutoff, and reports how many.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			reaped++
		}
	}
	return reaped
}

// Close stops the reaper and every hub.
func (gm *GameManager) Close() {
	gm.closeOnce.Do(func() {
		close(gm.done)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrading %s for %s: %v", r.URL.Path, realIP(r), err)
			return
		}

		logf(cfg, "SERVE: Board %s connected to %s", gameID, realIP(r))

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "start":
			select {
			case h.starts <- c:
			case <-h.ctx.Done():
				return
			}
		case "reveal":
			if msg.Row == nil || msg.Col == nil {
				continue
			}
			select {
			case h.reveals <- jeopardy.Coord{Row: *msg.Row, Col: *msg.Col}:
			case <-h.ctx.Done():
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		page, err := renderBoardPage(cfg, path, ps.ByName("gameid"))
		if err != nil {
			panic(err)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_, _ = w.Write(page)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerJeopardyGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerJeopardyGame(cfg *Config, path string, mux *httprouter.Router, fetcher jeopardy.Fetcher) *GameManager {
	gm := newGameManager(fetcher, cfg.sessionTimeout)

	// Root path → redirect to new random game
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, path))

	// Per-game websocket
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game QR code
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return gm
}
