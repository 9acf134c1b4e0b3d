package dash

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skylark-data/flightdeck/internal/config"
	"github.com/skylark-data/flightdeck/internal/flight"
	"github.com/skylark-data/flightdeck/internal/fsutil"
	"github.com/skylark-data/flightdeck/internal/httputil"
	"github.com/skylark-data/flightdeck/internal/monitoring"
	"github.com/skylark-data/flightdeck/internal/security"
	"github.com/skylark-data/flightdeck/internal/series"
	"github.com/skylark-data/flightdeck/internal/store"
	"github.com/skylark-data/flightdeck/internal/timeutil"
	"github.com/skylark-data/flightdeck/internal/ulog"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// MaxUploadBytes caps a single log upload or URL import.
const MaxUploadBytes = 256 << 20

type Server struct {
	db     *store.DB
	cfg    config.Config
	cache  *logCache
	clock  timeutil.Clock
	fs     fsutil.FileSystem
	client httputil.HTTPClient
}

func NewServer(db *store.DB, cfg config.Config, clock timeutil.Clock) *Server {
	return &Server{
		db:     db,
		cfg:    cfg,
		cache:  newLogCache(cfg.CacheSize, clock),
		clock:  clock,
		fs:     fsutil.OSFileSystem{},
		client: httputil.NewStandardClient(nil),
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/upload", s.uploadHandler)
	mux.HandleFunc("/view", s.viewHandler)
	mux.HandleFunc("/browse", s.browseHandler)
	mux.HandleFunc("/chart", s.chartHandler)
	mux.HandleFunc("/delete", s.deleteHandler)
	mux.HandleFunc("/api/logs", s.listLogs)
	mux.HandleFunc("/api/topics", s.listTopics)
	mux.HandleFunc("/api/fields", s.listFields)
	mux.HandleFunc("/api/data", s.fieldData)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// load returns the parsed log for id, reading and caching on a miss. The
// stored path is re-validated against the log directory before the read.
func (s *Server) load(id string) (*store.LogRecord, *ulog.Log, error) {
	rec, err := s.db.LogByID(id)
	if err != nil {
		return nil, nil, err
	}
	if lg, ok := s.cache.get(id); ok {
		return rec, lg, nil
	}
	if err := security.ValidatePathWithinDirectory(rec.Path, s.cfg.LogDir); err != nil {
		return nil, nil, fmt.Errorf("refusing stored path: %w", err)
	}
	f, err := s.fs.Open(rec.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", rec.Filename, err)
	}
	defer f.Close()
	lg, err := ulog.Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", rec.Filename, err)
	}
	s.cache.add(id, lg)
	return rec, lg, nil
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	if src := r.FormValue("url"); src != "" {
		s.importFromURL(w, r, src)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file upload or url", http.StatusBadRequest)
		return
	}
	defer file.Close()

	s.ingest(w, r, header.Filename, file)
}

// importFromURL fetches a log over HTTP and ingests it like a direct upload.
func (s *Server) importFromURL(w http.ResponseWriter, r *http.Request, src string) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "Invalid log URL", http.StatusBadRequest)
		return
	}

	resp, err := s.client.Get(src)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch log: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, fmt.Sprintf("Log fetch returned status %d", resp.StatusCode), http.StatusBadGateway)
		return
	}

	name := path.Base(u.Path)
	if filepath.Ext(name) == "" {
		name += ".ulg"
	}
	s.ingest(w, r, name, io.LimitReader(resp.Body, MaxUploadBytes))
}

// ingest stores, parses and indexes one incoming log.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request, filename string, src io.Reader) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".ulg" && ext != ".ulog" {
		http.Error(w, "Only .ulg or .ulog files are accepted", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	if err := s.fs.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	dstPath := filepath.Join(s.cfg.LogDir, id+ext)

	dst, err := s.fs.Create(dstPath)
	if err != nil {
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	size, err := io.Copy(dst, src)
	dst.Close()
	if err != nil {
		s.fs.Remove(dstPath)
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	f, err := s.fs.Open(dstPath)
	if err != nil {
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	lg, err := ulog.Read(f)
	f.Close()
	if err != nil {
		s.fs.Remove(dstPath)
		http.Error(w, fmt.Sprintf("Not a valid ULog file: %v", err), http.StatusBadRequest)
		return
	}

	info := flight.Info(lg)
	rec := store.LogRecord{
		ID:         id,
		Filename:   security.SanitizeFilename(filepath.Base(filename)),
		Path:       dstPath,
		SizeBytes:  size,
		UploadedAt: s.clock.Now(),
		DurationS:  lg.DurationS(),
		SysName:    info.SystemName,
		VerSW:      info.SoftwareVer,
		VerHW:      info.Hardware,
	}
	if err := s.db.InsertLog(rec); err != nil {
		s.fs.Remove(dstPath)
		http.Error(w, "Failed to index upload", http.StatusInternalServerError)
		return
	}
	if err := s.db.UpsertSummary(id, flight.Summarize(lg)); err != nil {
		monitoring.Logf("upload: summary for %s: %v", id, err)
	}
	s.cache.add(id, lg)

	monitoring.Logf("upload: %s (%d bytes) indexed as %s", rec.Filename, size, id)
	http.Redirect(w, r, "/view?id="+id, http.StatusSeeOther)
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.FormValue("id")
	rec, err := s.db.LogByID(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Log not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to look up log", http.StatusInternalServerError)
		return
	}
	if err := s.db.DeleteLog(id); err != nil {
		http.Error(w, "Failed to delete log", http.StatusInternalServerError)
		return
	}
	s.cache.remove(id)
	if err := security.ValidatePathWithinDirectory(rec.Path, s.cfg.LogDir); err != nil {
		monitoring.Logf("delete: refusing stored path %s: %v", rec.Path, err)
	} else if err := s.fs.Remove(rec.Path); err != nil {
		monitoring.Logf("delete: remove %s: %v", rec.Path, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	logs, err := s.db.Logs()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list logs: %v", err))
		return
	}
	if logs == nil {
		logs = []store.LogRecord{}
	}
	httputil.WriteJSONOK(w, logs)
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	_, lg, err := s.loadForAPI(w, r.URL.Query().Get("id"))
	if err != nil {
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"topics": lg.TopicKeys()})
}

func (s *Server) listFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	_, lg, err := s.loadForAPI(w, r.URL.Query().Get("id"))
	if err != nil {
		return
	}
	topic := r.URL.Query().Get("topic")
	ds := lg.ByKey(topic)
	if ds == nil {
		httputil.NotFound(w, fmt.Sprintf("Unknown topic %q", topic))
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"topic": topic, "fields": ds.FieldNames()})
}

func (s *Server) fieldData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	_, lg, err := s.loadForAPI(w, r.URL.Query().Get("id"))
	if err != nil {
		return
	}

	topic := r.URL.Query().Get("topic")
	field := r.URL.Query().Get("field")
	ds := lg.ByKey(topic)
	if ds == nil {
		httputil.NotFound(w, fmt.Sprintf("Unknown topic %q", topic))
		return
	}
	ts, ok := ds.Series(field)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("Unknown field %q", field))
		return
	}

	maxPoints := s.cfg.MaxPoints
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		v, err := strconv.Atoi(mp)
		if err != nil || v < series.MinPoints {
			httputil.BadRequest(w, "Invalid 'max_points' parameter")
			return
		}
		maxPoints = v
	}
	ts = ts.Downsampled(maxPoints)

	httputil.WriteJSONOK(w, map[string]any{
		"topic":  topic,
		"field":  field,
		"times":  ts.Times,
		"values": ts.Values,
	})
}

// loadForAPI resolves a log id for the JSON endpoints, writing the error
// response itself so callers can just return.
func (s *Server) loadForAPI(w http.ResponseWriter, id string) (*store.LogRecord, *ulog.Log, error) {
	if id == "" {
		httputil.BadRequest(w, "Missing 'id' parameter")
		return nil, nil, errors.New("missing id")
	}
	rec, lg, err := s.load(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("Unknown log %q", id))
		return nil, nil, err
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load log: %v", err))
		return nil, nil, err
	}
	return rec, lg, nil
}
