package google

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CallbackPath is where the consent page redirects to.
const CallbackPath = "/oauth/callback"

var resultPage = template.Must(template.New("result").Parse(`<!doctype html>
<html><head><title>adsdash</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:4em">
<h2>{{.Title}}</h2><p>{{.Message}}</p><p>You can close this tab.</p>
</body></html>`))

// CallbackServer receives the OAuth redirect on a loopback port and
// completes the handshake.
type CallbackServer struct {
	connector *Connector
	addr      string
	srv       *http.Server
	done      chan error
}

// RedirectURI returns the callback URL registered with the backend.
func RedirectURI(port int) string {
	if port <= 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, CallbackPath)
}

// NewCallbackServer creates a server bound to 127.0.0.1:port.
// Results of each exchange are sent on Results.
func NewCallbackServer(connector *Connector, port int) *CallbackServer {
	s := &CallbackServer{
		connector: connector,
		addr:      fmt.Sprintf("127.0.0.1:%d", port),
		done:      make(chan error, 1),
	}
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the HTTP handler; exposed for tests.
func (s *CallbackServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Get(CallbackPath, s.handleCallback)
	return r
}

// Results delivers the outcome of every callback: nil on success.
func (s *CallbackServer) Results() <-chan error {
	return s.done
}

// Start begins listening. It returns once the port is bound.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("oauth callback server stopped", "err", err)
		}
	}()
	slog.Info("oauth callback listening", "addr", s.addr)
	return nil
}

// Shutdown stops the listener.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		s.finish(w, http.StatusBadRequest, fmt.Errorf("google denied access: %s", msg))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	err := s.connector.Exchange(ctx, q.Get("code"), q.Get("state"))
	if err != nil {
		s.finish(w, http.StatusBadGateway, err)
		return
	}
	s.finish(w, http.StatusOK, nil)
}

func (s *CallbackServer) finish(w http.ResponseWriter, status int, err error) {
	page := struct{ Title, Message string }{"Google account connected", "Return to the terminal."}
	if err != nil {
		slog.Warn("oauth callback failed", "err", err)
		page.Title = "Connection failed"
		page.Message = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = resultPage.Execute(w, page)

	select {
	case s.done <- err:
	default:
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http", "method", r.Method, "path", r.URL.Path, "latency", time.Since(start))
	})
}
