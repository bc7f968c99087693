// Package web provides a read-only HTTP inspector for a declaration file.
//
// The server loads the file once at startup, resolves inheritance and serves
// the resulting registry as JSON. With watching enabled it reloads whenever
// the file changes, refreshes the binary cache and notifies connected
// clients over Server-Sent Events.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/robinvdvleuten/declkit/decl"
	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/loader"
	"github.com/robinvdvleuten/declkit/report"
	"github.com/robinvdvleuten/declkit/telemetry"
)

type Server struct {
	Port         int
	Host         string
	Version      string
	CommitSHA    string
	WatchEnabled bool

	// Types lists the declaration types to load. Empty accepts every type.
	Types []string
	// WriteCache rewrites the binary cache after loading the text file.
	WriteCache bool
	// Compress makes refreshed caches zstd-compressed.
	Compress bool

	mu      sync.RWMutex
	catalog *catalog
	// failed holds the diagnostics of the last reload when it failed and
	// catalog still serves an earlier load.
	failed []Diagnostic

	// inputFile is the declaration file passed to New().
	inputFile string

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

func New(port int, declFile string) *Server {
	return NewWithVersion(port, declFile, "", "")
}

func NewWithVersion(port int, declFile, version, commitSHA string) *Server {
	return &Server{
		Port:       port,
		Host:       "127.0.0.1",
		Version:    version,
		CommitSHA:  commitSHA,
		inputFile:  declFile,
		sseClients: make(map[chan string]struct{}),
	}
}

func (s *Server) Start(ctx context.Context) error {
	collector := telemetry.FromContext(ctx)
	timer := collector.Start(fmt.Sprintf("web.start %s:%d", s.Host, s.Port))

	if s.inputFile == "" {
		timer.End()
		return fmt.Errorf("declaration file is required")
	}

	loadTimer := timer.Child(fmt.Sprintf("web.load %s", filepath.Base(s.inputFile)))
	if err := s.reload(ctx); err != nil {
		loadTimer.End()
		timer.End()
		return fmt.Errorf("failed to load declarations: %w", err)
	}
	loadTimer.End()

	if s.WatchEnabled {
		if err := s.startWatcher(ctx); err != nil {
			timer.End()
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	setupTimer := timer.Child("web.setup_router")
	mux := s.setupRouter()
	setupTimer.End()
	timer.End()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleGetStatus)
	mux.HandleFunc("GET /api/types", s.handleGetTypes)
	mux.HandleFunc("GET /api/decls/{type}", s.handleGetDecls)
	mux.HandleFunc("GET /api/decls/{type}/{name}", s.handleGetDecl)
	mux.HandleFunc("GET /api/diagnostics", s.handleGetDiagnostics)
	mux.HandleFunc("GET /api/events", s.handleSSE)

	return mux
}

// reload parses the declaration file with a fresh parser and pools and
// swaps in the result. On error the previous catalog stays in place.
// Caller must NOT hold the mutex - this method acquires it internally.
func (s *Server) reload(ctx context.Context) error {
	collector := report.NewCollector()
	opts := []decl.Option{decl.WithReporter(collector)}
	if len(s.Types) == 0 {
		opts = append(opts, decl.WithAnyType())
	}
	if s.Compress {
		opts = append(opts, decl.WithCompression())
	}

	p := decl.NewParser(dict.NewPools(), opts...)
	for _, name := range s.Types {
		p.RegisterType(name)
	}

	src, err := p.Loader().Select(s.inputFile)
	if err != nil {
		collector.Report(report.Open, err.Error(), s.inputFile)
		s.recordFailure(collector.Entries)
		return err
	}
	if err := p.LoadFile(ctx, s.inputFile); err != nil {
		s.recordFailure(collector.Entries)
		return err
	}
	p.SolveInheritance(ctx)

	// A cache that was skipped or rejected is stale.
	if s.WriteCache && (src.Format == loader.Text || collector.Count(report.BadMagic) > 0) {
		if err := p.MakeBinary(ctx, s.inputFile); err != nil {
			log.Printf("Warning: failed to refresh cache for %s: %v", s.inputFile, err)
		}
	}

	c := newCatalog(p, collector.Entries)
	c.file = s.inputFile
	c.source = src.Format
	c.loadedAt = time.Now()

	s.mu.Lock()
	s.catalog = c
	s.failed = nil
	s.mu.Unlock()

	return nil
}

func (s *Server) recordFailure(entries []report.Entry) {
	diagnostics := toDiagnostics(entries)
	s.mu.Lock()
	s.failed = diagnostics
	s.mu.Unlock()
}

// startWatcher watches the declaration file and reloads it on change.
func (s *Server) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(s.inputFile); err != nil {
		log.Printf("Warning: failed to watch %s: %v", s.inputFile, err)
	}

	go s.runWatcher(ctx, watcher)

	return nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	// Editors often write files in multiple steps
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Remove/Rename are common in atomic saves
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}

			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.handleFileChange(ctx, watcher)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleFileChange reloads the declarations and renews the watch, which an
// atomic save drops together with the replaced file.
func (s *Server) handleFileChange(ctx context.Context, watcher *fsnotify.Watcher) {
	if err := s.reload(ctx); err != nil {
		log.Printf("Failed to reload %s: %v", s.inputFile, err)
		s.broadcast("error")
		return
	}

	if err := watcher.Add(s.inputFile); err != nil {
		log.Printf("Warning: failed to watch %s: %v", s.inputFile, err)
	}

	s.broadcast("reload")
}

// handleSSE handles Server-Sent Events connections for reload notifications.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := s.subscribe()
	defer s.unsubscribe(clientChan)

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-clientChan:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

func (s *Server) subscribe() chan string {
	clientChan := make(chan string, 10)
	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()
	return clientChan
}

func (s *Server) unsubscribe(clientChan chan string) {
	s.sseMu.Lock()
	delete(s.sseClients, clientChan)
	s.sseMu.Unlock()
}

// broadcast sends an event to all connected SSE clients.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
			// Client buffer full, skip
		}
	}
}
