package tunnel_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

// cudatelServer is a fake CudaTel GUI API.
type cudatelServer struct {
	*httptest.Server

	logins   atomic.Int32
	statuses atomic.Int32
	logouts  atomic.Int32
	requests atomic.Int32

	// rejectLogins answers that many logins with NOTAUTHORIZED.
	rejectLogins atomic.Int32
	// delay holds every response.
	delay atomic.Int64
	// kickLogins redirects logins to the logout page.
	kickLogins atomic.Bool

	mu       sync.Mutex
	seq      int
	valid    map[string]bool
	lastReq  *http.Request
	lastForm url.Values
}

func newCudatelServer(t *testing.T) *cudatelServer {
	t.Helper()

	s := &cudatelServer{valid: make(map[string]bool)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *cudatelServer) host() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// issue registers a token the status endpoint accepts.
func (s *cudatelServer) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	tok := fmt.Sprintf("%040d", s.seq)
	s.valid[tok] = true
	return tok
}

func (s *cudatelServer) last() (*http.Request, url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq, s.lastForm
}

func (s *cudatelServer) serve(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	if d := time.Duration(s.delay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	_ = r.ParseForm()
	s.mu.Lock()
	s.lastReq = r
	s.lastForm = r.PostForm
	s.mu.Unlock()

	switch r.URL.Path {
	case "/gui/login/login":
		s.logins.Add(1)
		if s.kickLogins.Load() {
			http.Redirect(w, r, "/gui/login/logout", http.StatusFound)
			return
		}
		if s.rejectLogins.Load() > 0 {
			s.rejectLogins.Add(-1)
			writeJSON(w, map[string]any{"error": "NOTAUTHORIZED"})
			return
		}
		tok := s.issue()
		w.Header().Add("Set-Cookie", "bps_session="+tok+"; path=/")
		writeJSON(w, map[string]any{"data": map[string]any{
			"bbx_user_id":       1,
			"bbx_user_username": r.PostForm.Get("__auth_user"),
		}})

	case "/gui/login/status":
		s.statuses.Add(1)
		s.mu.Lock()
		ok := s.valid[r.URL.Query().Get("sessionid")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, map[string]any{"error": "NOTAUTHORIZED"})
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"status": "ok"}})

	case "/gui/login/logout":
		s.logouts.Add(1)
		s.mu.Lock()
		delete(s.valid, r.URL.Query().Get("sessionid"))
		s.mu.Unlock()
		writeJSON(w, map[string]any{"data": "logged out"})

	case "/gui/broken":
		w.WriteHeader(http.StatusBadGateway)

	case "/gui/text":
		_, _ = w.Write([]byte("<html>oops</html>"))

	case "/gui/kicked":
		http.Redirect(w, r, "/gui/login/logout?reason=expired", http.StatusFound)

	default:
		s.mu.Lock()
		ok := s.valid[r.URL.Query().Get("sessionid")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, map[string]any{"error": "NOTAUTHORIZED"})
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{
			"path":  r.URL.Path,
			"query": r.URL.RawQuery,
		}})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	// leading whitespace exercises body trimming
	_, _ = w.Write([]byte("\n "))
	_ = json.NewEncoder(w).Encode(v)
}

// storeMock is a testify mock of sessionstore.Store.
type storeMock struct {
	mock.Mock
}

func (s *storeMock) Load(ctx context.Context, username string) (sessionstore.Record, error) {
	args := s.Called(ctx, username)
	return args.Get(0).(sessionstore.Record), args.Error(1)
}

func (s *storeMock) Save(ctx context.Context, username string, rec sessionstore.Record) error {
	return s.Called(ctx, username, rec).Error(0)
}

func (s *storeMock) Delete(ctx context.Context, username string) error {
	return s.Called(ctx, username).Error(0)
}

// recorder captures published lifecycle events.
type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Publish(_ context.Context, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload)
	return nil
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.events))
	copy(out, r.events)
	return out
}
