package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	mng "github.com/loykin/minesim/internal/manager"
)

// DefaultStopWait bounds how long POST /stop waits for the loop to exit
// when no wait parameter is given.
const DefaultStopWait = 5 * time.Second

// Router provides embeddable HTTP handlers for controlling the miner.
// Endpoints:
//
//	POST {basePath}/start
//	POST {basePath}/stop         query: wait=2s (optional)
//	GET  {basePath}/status
//	GET  {basePath}/logs
//	GET  {basePath}/difficulty
//	POST {basePath}/difficulty   query: value=3 OR body {"difficulty":3}
//	GET  {basePath}/events       server-sent events
//	GET  /                       dashboard (when enabled)
//	GET  /metrics                Prometheus (when a handler is set)
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	mgr       *mng.Manager
	basePath  string
	opts      Options
	dashboard string
}

// Options selects the optional surfaces of the router.
type Options struct {
	Dashboard bool
	Metrics   http.Handler
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/abc" results in /abc/start, /abc/stop, /abc/status.
func NewRouter(mgr *mng.Manager, basePath string, opts Options) *Router {
	bp := sanitizeBase(basePath)
	return &Router{
		mgr:       mgr,
		basePath:  bp,
		opts:      opts,
		dashboard: strings.ReplaceAll(dashboardHTML, "__BASE__", bp),
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.GET("/difficulty", r.handleGetDifficulty)
	group.POST("/difficulty", r.handleSetDifficulty)
	group.GET("/events", r.handleEvents)
	if r.opts.Dashboard {
		g.GET("/", r.handleDashboard)
	}
	if r.opts.Metrics != nil {
		g.GET("/metrics", gin.WrapH(r.opts.Metrics))
	}
	return g
}

// NewServer binds addr and serves this router on it in the background.
// A bind failure is returned; Addr on the result holds the bound address.
// Call Shutdown on the returned server to stop it.
func NewServer(addr, basePath string, mgr *mng.Manager, opts Options) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	r := NewRouter(mgr, basePath, opts)
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: /events streams for as long as the client stays.
		IdleTimeout: 60 * time.Second,
	}
	go func() { _ = server.Serve(ln) }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type logsResp struct {
	Lines []string `json:"lines"`
}

type difficultyReq struct {
	Difficulty int `json:"difficulty"`
}

type difficultyResp struct {
	Difficulty int `json:"difficulty"`
	Min        int `json:"min"`
	Max        int `json:"max"`
}

func (r *Router) handleStart(c *gin.Context) {
	if err := r.mgr.Start(c.Request.Context()); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	wait := DefaultStopWait
	if ws := c.Query("wait"); ws != "" {
		d, err := time.ParseDuration(ws)
		if err != nil || d <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid wait: " + ws})
			return
		}
		wait = d
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
	defer cancel()
	if err := r.mgr.Stop(ctx); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.mgr.Status())
}

func (r *Router) handleLogs(c *gin.Context) {
	writeJSON(c, http.StatusOK, logsResp{Lines: r.mgr.Logs()})
}

func (r *Router) handleGetDifficulty(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.difficulty())
}

func (r *Router) handleSetDifficulty(c *gin.Context) {
	var n int
	if v := c.Query("value"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid value: " + v})
			return
		}
		n = parsed
	} else {
		var req difficultyReq
		if err := c.ShouldBindJSON(&req); err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
			return
		}
		n = req.Difficulty
	}
	if err := r.mgr.SetDifficulty(n); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, mng.ErrInvalidDifficulty) {
			code = http.StatusBadRequest
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, r.difficulty())
}

func (r *Router) difficulty() difficultyResp {
	return difficultyResp{Difficulty: r.mgr.Difficulty(), Min: mng.MinDifficulty, Max: mng.MaxDifficulty}
}

func (r *Router) handleDashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(r.dashboard))
}
