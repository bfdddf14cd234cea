package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/engine"
	"github.com/pulsefm/pulse/internal/station"
)

// Radio is the slice of the engine the websocket layer drives.
type Radio interface {
	Snapshot(ctx context.Context) engine.SyncEvent
	HandleReaction(ctx context.Context, text string) error
	Like(ctx context.Context) error
	Dislike(ctx context.Context) error
	Save(ctx context.Context) error
	Skip(ctx context.Context) error
	TrackEnded(ctx context.Context) error
	FirstVibe(ctx context.Context, text string) error
	SwitchStation(ctx context.Context, name string) error
	DeleteStation(ctx context.Context, name string) error
	CleanStation(ctx context.Context) error
	Pause()
	Resume()
	TogglePause()
	Seek(to time.Duration)
	SetVolume(v float64)
}

// HealthChecker reports whether the synthesis backend is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// Server exposes the websocket endpoint and the small HTTP API.
type Server struct {
	radio Radio
	hub   *Hub
	store *station.Store
	synth HealthChecker

	ollamaHost  string
	ollamaModel string
	minFreeMB   int64
	version     string

	httpClient *http.Client
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

type Options struct {
	Radio       Radio
	Hub         *Hub
	Store       *station.Store
	Synth       HealthChecker
	OllamaHost  string
	OllamaModel string
	MinFreeMB   int64
	Version     string
}

func NewServer(opts Options, log *zap.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.MinFreeMB <= 0 {
		opts.MinFreeMB = 50
	}
	return &Server{
		radio:       opts.Radio,
		hub:         opts.Hub,
		store:       opts.Store,
		synth:       opts.Synth,
		ollamaHost:  opts.OllamaHost,
		ollamaModel: opts.OllamaModel,
		minFreeMB:   opts.MinFreeMB,
		version:     opts.Version,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// single-user radio on a trusted network
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/radios", s.handleRadios)
	mux.HandleFunc("GET /api/radios/{name}/history", s.handleHistory)
	mux.HandleFunc("GET /api/radios/{name}/stats", s.handleStats)
	mux.HandleFunc("GET /audio/{radio}/{file}", s.handleAudio)
	return mux
}

// command is the wire shape of every client-to-server message.
type command struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Name     string   `json:"name,omitempty"`
	Vibe     string   `json:"vibe,omitempty"`
	Level    *float64 `json:"level,omitempty"`
	Position float64  `json:"position,omitempty"` // seconds
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	c := s.hub.subscribe()
	defer s.hub.unsubscribe(c)
	s.log.Info("client connected", zap.String("client", c.id), zap.Int("total", s.hub.ClientCount()))
	defer s.log.Info("client disconnected", zap.String("client", c.id))

	// Fresh sync replaces any events missed while disconnected.
	sync, err := encode(s.radio.Snapshot(r.Context()))
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, sync); err != nil {
			return
		}
	}

	go s.writeLoop(conn, c)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(r.Context(), c.id, data)
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, clientID string, raw []byte) {
	var cmd command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.log.Warn("bad command", zap.String("client", clientID), zap.Error(err))
		return
	}

	var err error
	switch cmd.Type {
	case "reaction":
		if text := strings.TrimSpace(cmd.Text); text != "" {
			err = s.radio.HandleReaction(ctx, text)
		}
	case "pause":
		s.radio.Pause()
	case "resume":
		s.radio.Resume()
	case "toggle_pause":
		s.radio.TogglePause()
	case "skip":
		err = s.radio.Skip(ctx)
	case "like":
		err = s.radio.Like(ctx)
	case "dislike":
		err = s.radio.Dislike(ctx)
	case "save":
		err = s.radio.Save(ctx)
	case "seek":
		s.radio.Seek(time.Duration(cmd.Position * float64(time.Second)))
	case "volume":
		if cmd.Level != nil {
			s.radio.SetVolume(*cmd.Level)
		}
	case "switch_radio":
		if name := strings.TrimSpace(cmd.Name); name != "" {
			err = s.radio.SwitchStation(ctx, name)
		}
	case "create_radio":
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return
		}
		if err = s.radio.SwitchStation(ctx, name); err != nil {
			break
		}
		if vibe := strings.TrimSpace(cmd.Vibe); vibe != "" {
			err = s.radio.FirstVibe(ctx, vibe)
		}
	case "delete_radio":
		if name := strings.TrimSpace(cmd.Name); name != "" {
			err = s.radio.DeleteStation(ctx, name)
		}
	case "clean_radio":
		err = s.radio.CleanStation(ctx)
	case "first_vibe":
		err = s.radio.FirstVibe(ctx, strings.TrimSpace(cmd.Text))
	case "track_ended":
		err = s.radio.TrackEnded(ctx)
	default:
		s.log.Warn("unknown command", zap.String("type", cmd.Type))
		return
	}
	if err != nil {
		s.log.Error("command failed", zap.String("type", cmd.Type), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type check struct {
		OK     bool   `json:"ok"`
		Detail string `json:"detail,omitempty"`
	}
	checks := map[string]check{}

	ollama := check{}
	resp, err := s.httpClient.Get(s.ollamaHost + "/api/tags")
	if err != nil {
		ollama.Detail = err.Error()
	} else {
		resp.Body.Close()
		ollama.OK = resp.StatusCode == http.StatusOK
		ollama.Detail = s.ollamaModel
	}
	checks["ollama"] = ollama

	checks["acestep"] = check{OK: s.synth.Healthy(r.Context())}

	disk := check{}
	if free, err := s.store.DiskFreeMB(); err != nil {
		disk.Detail = err.Error()
	} else {
		disk.OK = free >= s.minFreeMB
		disk.Detail = fmt.Sprintf("%d MB free", free)
	}
	checks["disk"] = disk

	status := "ok"
	for _, c := range checks {
		if !c.OK {
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

func (s *Server) handleRadios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := s.store.ListStations(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	current, err := s.store.CurrentStation(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type radioInfo struct {
		Name          string `json:"name"`
		IsCurrent     bool   `json:"is_current"`
		Generations   int    `json:"generation_count"`
		FavoriteCount int    `json:"favorite_count"`
	}
	radios := make([]radioInfo, 0, len(names))
	for _, name := range names {
		info := radioInfo{Name: name, IsCurrent: name == current}
		if n, err := s.store.GenerationCount(ctx, name); err == nil {
			info.Generations = n
		}
		if entries, err := os.ReadDir(s.store.FavoritesDir(name)); err == nil {
			info.FavoriteCount = len(entries)
		}
		radios = append(radios, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"radios": radios, "current": current})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	tracks, err := s.store.History(r.Context(), name, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": tracks})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GenerationStats(r.Context(), r.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAudio serves generated tracks. http.ServeFile handles the Range
// requests Safari needs for seeking.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	radio := r.PathValue("radio")
	file := r.PathValue("file")
	if strings.Contains(radio, "..") || strings.Contains(file, "..") ||
		strings.ContainsAny(file, `/\`) || strings.ContainsAny(radio, `/\`) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	path := filepath.Join(s.store.TracksDir(radio), file)
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(s.store.FavoritesDir(radio), file)
		if _, err := os.Stat(path); err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
