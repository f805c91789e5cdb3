// Package web serves the docubot UI and JSON API: upload PDFs, trigger
// reindexing, clear the index and ask questions.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"docubot/internal/domain"
	"docubot/internal/logger"
	"docubot/internal/service"
)

// Core is the server-facing subset of the docubot service.
type Core interface {
	Reindex(ctx context.Context, docs []domain.Document) (int, error)
	Clear(ctx context.Context) error
	Answer(ctx context.Context, question string) (string, []domain.ScoredRecord, error)
}

// Server is the HTTP server for the docubot UI and API.
type Server struct {
	core    Core
	docsDir string
	addr    string
}

// NewServer creates a server staging uploads under docsDir.
func NewServer(core Core, docsDir, addr string) *Server {
	return &Server{core: core, docsDir: docsDir, addr: addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/api/reindex", s.handleReindex)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/health", s.handleHealth)
	return loggingMiddleware(mux)
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // reindex of a large corpus is slow
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("docubot server listening on %s", s.addr)
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>DocuBot</title>
    <style>
        body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
        fieldset { margin-bottom: 1.5rem; border: 1px solid #ccc; border-radius: 6px; }
        #answer { white-space: pre-wrap; background: #f6f6f6; padding: 1rem; border-radius: 6px; }
        .sources { color: #666; font-size: 0.9rem; }
        button { margin-right: .5rem; }
    </style>
</head>
<body>
    <h1>DocuBot &mdash; AI Document Q&amp;A</h1>
    <p>Upload PDFs &rarr; Index &rarr; Ask questions</p>

    <fieldset>
        <legend>Documents</legend>
        <form action="/upload" method="post" enctype="multipart/form-data">
            <input type="file" name="files" accept=".pdf" multiple required>
            <button type="submit">Upload</button>
        </form>
        <p>
            <button onclick="post('/api/reindex')">Index Documents</button>
            <button onclick="post('/api/clear')">Clear Index</button>
            <span id="status"></span>
        </p>
    </fieldset>

    <fieldset>
        <legend>Ask</legend>
        <form onsubmit="ask(event)">
            <input type="text" id="question" placeholder="Ask a question about your documents..." size="60" required>
            <button type="submit">Ask</button>
        </form>
        <div id="answer"></div>
        <div id="sources" class="sources"></div>
    </fieldset>

    <script>
        async function post(url) {
            const status = document.getElementById('status');
            status.textContent = 'Working...';
            const resp = await fetch(url, {method: 'POST'});
            const data = await resp.json();
            status.textContent = resp.ok
                ? (data.uploaded !== undefined ? 'Indexed ' + data.uploaded + ' chunks' : 'Done')
                : 'Error: ' + data.error;
        }
        async function ask(e) {
            e.preventDefault();
            const q = document.getElementById('question').value.trim();
            if (!q) return;
            const answer = document.getElementById('answer');
            const sources = document.getElementById('sources');
            answer.textContent = 'Thinking...';
            sources.textContent = '';
            const resp = await fetch('/api/ask', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({question: q})
            });
            const data = await resp.json();
            if (!resp.ok) {
                answer.textContent = 'Error: ' + data.error;
                return;
            }
            answer.textContent = data.answer;
            if (data.sources && data.sources.length) {
                sources.textContent = 'Sources: ' + data.sources.map(s => s.source).join(', ');
            }
        }
    </script>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

// handleUpload stages uploaded PDFs under the docs directory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := os.MkdirAll(s.docsDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	saved := 0
	for _, fh := range r.MultipartForm.File["files"] {
		if err := s.saveUpload(fh); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		saved++
	}
	logger.Info("staged %d uploaded file(s) under %s", saved, s.docsDir)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) saveUpload(fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	// Base name only: uploaded names must not escape the docs dir.
	dst, err := os.Create(filepath.Join(s.docsDir, filepath.Base(fh.Filename)))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docs, err := service.DiscoverPDFs(s.docsDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// A client disconnect must not abort ingestion between the clear
	// and upload phases, which would leave the index empty.
	n, err := s.core.Reindex(context.WithoutCancel(r.Context()), docs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploaded": n})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.core.Clear(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// askResponse is the /api/ask payload.
type askResponse struct {
	Answer  string      `json:"answer"`
	Sources []askSource `json:"sources"`
}

type askSource struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	answer, results, err := s.core.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := askResponse{Answer: answer, Sources: make([]askSource, 0, len(results))}
	for _, r := range results {
		resp.Sources = append(resp.Sources, askSource{Source: r.Source, Content: r.Content, Score: r.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger.Warn("http %d: %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
