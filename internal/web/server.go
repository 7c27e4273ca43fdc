// Package web serves the labeler to a browser. The page draws the current
// scan on a canvas and posts operator input back as events in data
// coordinates; all state lives in the labeler.Dispatcher.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/scanlabel/internal/httputil"
	"github.com/banshee-data/scanlabel/internal/journal"
	"github.com/banshee-data/scanlabel/internal/labeler"
	"github.com/banshee-data/scanlabel/internal/monitoring"
	"github.com/banshee-data/scanlabel/internal/render"
	"github.com/banshee-data/scanlabel/internal/scan"
	"github.com/banshee-data/scanlabel/internal/session"
	"github.com/banshee-data/scanlabel/internal/version"
)

//go:embed labeler.html
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "labeler.html"))

var logf = monitoring.Component("web")

const (
	defaultJournalLimit = 20
	maxJournalLimit     = 500
)

// JournalReader lists recent label saves.
type JournalReader interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// WebServerConfig contains the collaborators of the web server.
type WebServerConfig struct {
	Address    string
	Dispatcher *labeler.Dispatcher
	// Plot, when set, must be one of the canvases the session draws on.
	Plot    *render.PlotCanvas
	Chart   render.ChartOptions
	Journal JournalReader
}

// WebServer is the HTTP host of the labeler.
type WebServer struct {
	address string
	disp    *labeler.Dispatcher
	plot    *render.PlotCanvas
	chart   render.ChartOptions
	journal JournalReader
	server  *http.Server
	started time.Time
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		disp:    config.Dispatcher,
		plot:    config.Plot,
		chart:   config.Chart,
		journal: config.Journal,
		started: time.Now(),
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.setupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// Handler returns the route multiplexer, for tests and embedding.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}
	logf("HTTP server routine stopped")
	return nil
}

// Close stops the server immediately.
func (ws *WebServer) Close() error {
	return ws.server.Close()
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ws.handlePage)
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/state", ws.handleState)
	mux.HandleFunc("/api/catalog", ws.handleCatalog)
	mux.HandleFunc("/api/scan", ws.handleScan)
	mux.HandleFunc("/api/events", ws.handleEvents)
	mux.HandleFunc("/api/notices", ws.handleNotices)
	mux.HandleFunc("/api/journal", ws.handleJournal)
	mux.HandleFunc("/api/render.png", ws.handleRenderPNG)
	mux.HandleFunc("/chart", ws.handleChart)

	return mux
}

func (ws *WebServer) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	data := struct {
		Version string
		Address string
	}{version.Version, ws.address}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "labeler",
		"version":   version.Version,
		"uptime":    time.Since(ws.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var snap session.Snapshot
	ws.disp.View(func(c *session.Controller) { snap = c.Snapshot() })
	httputil.WriteJSONOK(w, snap)
}

// CatalogResponse lists both directories.
type CatalogResponse struct {
	DataDir      string   `json:"data_dir"`
	DataFiles    []string `json:"data_files"`
	LabelDir     string   `json:"label_dir"`
	LabelFiles   []string `json:"label_files"`
	CurrentIndex int      `json:"current_index"`
}

func (ws *WebServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var resp CatalogResponse
	ws.disp.View(func(c *session.Controller) {
		resp = CatalogResponse{
			DataDir:      c.DataCatalog().Dir(),
			DataFiles:    c.DataCatalog().Names(),
			LabelDir:     c.LabelCatalog().Dir(),
			LabelFiles:   c.LabelCatalog().Names(),
			CurrentIndex: c.CurrentIndex(),
		}
	})
	if resp.DataFiles == nil {
		resp.DataFiles = []string{}
	}
	if resp.LabelFiles == nil {
		resp.LabelFiles = []string{}
	}
	httputil.WriteJSONOK(w, resp)
}

// Window is the visible square in data coordinates.
type Window struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func windowOf(b r2.Box) Window {
	return Window{MinX: b.Min.X, MinY: b.Min.Y, MaxX: b.Max.X, MaxY: b.Max.Y}
}

// ScanResponse carries the displayed points as [x, y, label] triples.
// Non-finite points are omitted since JSON cannot carry them.
type ScanResponse struct {
	Source  string       `json:"source"`
	Preview bool         `json:"preview"`
	Window  Window       `json:"window"`
	Points  [][3]float64 `json:"points"`
	Total   int          `json:"total"`
}

// displayed copies the displayed scan and the window under the dispatcher
// lock. The scan is nil when nothing is loaded.
func (ws *WebServer) displayed() (s *scan.Scan, window r2.Box, preview bool) {
	ws.disp.View(func(c *session.Controller) {
		window = c.Window()
		if d := c.Displayed(); d != nil {
			s = d.Clone()
			preview = d != c.Scan()
		}
	})
	return s, window, preview
}

func (ws *WebServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s, window, preview := ws.displayed()
	if s == nil {
		httputil.NotFound(w, "no scan loaded")
		return
	}
	resp := ScanResponse{
		Source:  s.Source,
		Preview: preview,
		Window:  windowOf(window),
		Points:  make([][3]float64, 0, s.Len()),
		Total:   s.Len(),
	}
	for _, p := range s.Records {
		if !finite(p.X) || !finite(p.Y) {
			continue
		}
		resp.Points = append(resp.Points, [3]float64{p.X, p.Y, float64(p.Label)})
	}
	httputil.WriteJSONOK(w, resp)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EventResponse is the outcome of a posted event. Error is set when the
// event was rejected; the same message is also recorded as a notice.
type EventResponse struct {
	labeler.Outcome
	Error string `json:"error,omitempty"`
}

func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var ev labeler.Event
	if err := httputil.DecodeJSON(w, r, &ev); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if ev.Kind == labeler.KindInvalid {
		httputil.BadRequest(w, "missing event kind")
		return
	}

	out, err := ws.disp.Dispatch(r.Context(), ev)
	resp := EventResponse{Outcome: out}
	if err != nil {
		resp.Error = err.Error()
		status := http.StatusUnprocessableEntity
		if errors.Is(err, labeler.ErrUnknownEvent) {
			status = http.StatusBadRequest
		}
		httputil.WriteJSON(w, status, resp)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func (ws *WebServer) handleNotices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "invalid 'since' parameter")
			return
		}
		since = n
	}
	notices := ws.disp.Notices(since)
	if notices == nil {
		notices = []labeler.Notice{}
	}
	httputil.WriteJSONOK(w, notices)
}

func (ws *WebServer) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.journal == nil {
		httputil.NotFound(w, "journal disabled")
		return
	}
	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxJournalLimit {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = n
	}
	entries, err := ws.journal.List(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, "list journal: "+err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	httputil.WriteJSONOK(w, entries)
}

func (ws *WebServer) handleRenderPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.plot == nil {
		httputil.NotFound(w, "plot rendering disabled")
		return
	}
	var buf bytes.Buffer
	if err := ws.plot.Encode(&buf, "png"); err != nil {
		httputil.InternalServerError(w, "render plot: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (ws *WebServer) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s, window, _ := ws.displayed()
	if s == nil {
		http.Error(w, "no scan loaded", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := render.RenderChart(&buf, s, window, ws.chart); err != nil {
		http.Error(w, "failed to render chart: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
