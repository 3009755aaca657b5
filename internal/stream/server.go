// Package stream serves a running solver over HTTP. One goroutine owns the
// solver; WebSocket clients receive every rendered frame as JSON and send
// commands back on the same socket.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/render"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultInterval = time.Second / 30
	sendBuffer      = 4
	writeWait       = time.Second
)

// Command is a client request. Type is one of poke, param, pause, resume,
// reset or reload.
type Command struct {
	Type     string     `json:"type"`
	Position [3]float64 `json:"position,omitempty"`
	Force    [3]float64 `json:"force,omitempty"`
	Radius   float64    `json:"radius,omitempty"`
	Name     string     `json:"name,omitempty"`
	Value    float64    `json:"value,omitempty"`

	config *config.Config
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server steps one solver on a fixed interval and fans its frames out.
type Server struct {
	cfg      *config.Config
	logger   *log.Logger
	interval time.Duration
	pool     *render.FramePool
	upgrader websocket.Upgrader
	commands chan Command

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	latest atomic.Pointer[[]byte]
	params atomic.Pointer[map[string]float64]
	frames atomic.Int64
}

type Option func(*Server)

// WithInterval sets the wall-clock time between steps.
func WithInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg.Clone(),
		logger:   log.Default(),
		interval: DefaultInterval,
		pool:     render.NewFramePool(4096),
		commands: make(chan Command, 64),
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send queues a command for the simulation loop.
func (s *Server) Send(ctx context.Context, c Command) error {
	select {
	case s.commands <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload queues a configuration swap. Tunable changes are applied in place;
// a different solver, scene or grid size rebuilds the solver.
func (s *Server) Reload(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.Send(ctx, Command{Type: "reload", config: cfg})
}

// Frames returns how many frames have been published.
func (s *Server) Frames() int64 { return s.frames.Load() }

// Latest returns the last published frame encoding, or nil.
func (s *Server) Latest() []byte {
	if b := s.latest.Load(); b != nil {
		return *b
	}
	return nil
}

// Run builds the solver and steps it until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	solver, err := experiment.Build(s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer func() { solver.Close() }()

	s.logger.Info("streaming", "solver", s.cfg.Solver, "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()

	paused := false
	s.publish(solver)
	for {
		select {
		case <-ctx.Done():
			s.closeClients()
			return nil
		case c := <-s.commands:
			next, err := s.apply(solver, c, &paused)
			if err != nil {
				s.logger.Warn("command failed", "type", c.Type, "err", err)
			}
			if next != nil {
				solver.Close()
				solver = next
				s.storeParams(solver)
				s.publish(solver)
			}
		case <-ticker.C:
			if paused {
				continue
			}
			solver.Update(s.cfg.TimeStep())
			s.publish(solver)
		}
	}
}

// apply runs one command on the loop goroutine. It returns a replacement
// solver when the command rebuilt the scene.
func (s *Server) apply(solver experiment.Instance, c Command, paused *bool) (experiment.Instance, error) {
	switch c.Type {
	case "pause":
		*paused = true
	case "resume":
		*paused = false
	case "poke":
		solver.ApplyForce(vec(c.Position), vec(c.Force), c.Radius)
	case "param":
		if err := solver.SetParam(c.Name, c.Value); err != nil {
			return nil, err
		}
		s.storeParams(solver)
	case "reset":
		return experiment.Build(s.cfg, s.logger)
	case "reload":
		return s.reload(solver, c.config)
	default:
		return nil, fmt.Errorf("stream: unknown command %q", c.Type)
	}
	return nil, nil
}

func (s *Server) reload(solver experiment.Instance, cfg *config.Config) (experiment.Instance, error) {
	old := s.cfg
	s.cfg = cfg.Clone()
	if NeedsRebuild(old, s.cfg) {
		s.logger.Info("config reloaded", "rebuild", true)
		return experiment.Build(s.cfg, s.logger)
	}
	changed, err := experiment.Retune(solver, s.cfg)
	s.logger.Info("config reloaded", "changed", changed)
	s.storeParams(solver)
	return nil, err
}

func (s *Server) storeParams(solver fluid.Configurable) {
	p := solver.GetParams()
	s.params.Store(&p)
}

func (s *Server) publish(solver fluid.Solver) {
	f := render.Capture(solver, s.pool)
	var buf bytes.Buffer
	err := f.WriteJSON(&buf)
	s.pool.Put(f)
	if err != nil {
		s.logger.Error("encode frame", "err", err)
		return
	}
	b := buf.Bytes()
	s.latest.Store(&b)
	if s.params.Load() == nil {
		s.storeParams(solver)
	}
	s.frames.Add(1)
	s.broadcast(b)
}

// broadcast hands the frame to every client. Slow clients drop frames.
func (s *Server) broadcast(b []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

// Handler routes /ws, /frame and /params.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/params", s.handleParams)
	return mux
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	b := s.Latest()
	if b == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	p := s.params.Load()
	if p == nil {
		http.Error(w, "no solver yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(*p)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "err", err)
		return
	}
	// the first frame is queued before c is visible to closeClients
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if b := s.Latest(); b != nil {
		c.send <- b
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	go s.writeLoop(c)
	s.readLoop(r.Context(), c)
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.logger.Debug("websocket write", "err", err)
			s.drop(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	defer s.drop(c)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read", "err", err)
			}
			return
		}
		if cmd.Type == "reload" {
			continue
		}
		if err := s.Send(ctx, cmd); err != nil {
			return
		}
	}
}

// drop unregisters c once; its write loop then exits.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// NeedsRebuild reports whether moving from old to next cannot be done by
// retuning the running solver.
func NeedsRebuild(old, next *config.Config) bool {
	if old.Solver != next.Solver {
		return true
	}
	if !sceneEqual(old.Scene, next.Scene) {
		return true
	}
	switch next.Solver {
	case "sph":
		return old.SPH.Bounds != next.SPH.Bounds || old.SPH.MaxParticles != next.SPH.MaxParticles ||
			old.SPH.Dimensions != next.SPH.Dimensions
	case "flip":
		return old.FLIP.GridSize != next.FLIP.GridSize || old.FLIP.Resolution != next.FLIP.Resolution ||
			old.FLIP.MaxParticles != next.FLIP.MaxParticles
	case "lbm":
		return old.LBM.Width != next.LBM.Width || old.LBM.Height != next.LBM.Height ||
			old.LBM.InitialDensity != next.LBM.InitialDensity
	}
	return false
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }
