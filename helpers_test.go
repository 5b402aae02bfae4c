package cudatel_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/dmitrymomot/cudatel/core/tunnel"
)

// fakePBX answers tunnel descriptors without a network.
type fakePBX struct {
	mu      sync.Mutex
	seq     int
	valid   map[string]bool
	logins  int
	queries map[string]string
}

func newFakePBX() *fakePBX {
	return &fakePBX{valid: make(map[string]bool), queries: make(map[string]string)}
}

func (f *fakePBX) Do(_ context.Context, d tunnel.Descriptor) (*tunnel.Response, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &tunnel.Response{StatusCode: http.StatusOK, Header: http.Header{}, URL: u}
	sid := u.Query().Get("sessionid")

	switch u.Path {
	case tunnel.LoginPath:
		f.logins++
		f.seq++
		tok := fmt.Sprintf("%040d", f.seq)
		f.valid[tok] = true
		resp.Header.Add("Set-Cookie", "bps_session="+tok+"; path=/")
		resp.Body = []byte(`{"data":{"bbx_user_id":1,"bbx_user_username":"` + d.Form.Get("__auth_user") + `"}}`)
	case tunnel.LogoutPath:
		delete(f.valid, sid)
		resp.Body = []byte(`{"data":true}`)
	default:
		if !f.valid[sid] {
			resp.Body = []byte(`{"error":"NOTAUTHORIZED"}`)
			break
		}
		f.queries[u.Path] = u.RawQuery
		resp.Body = []byte(`{"data":{"path":"` + u.Path + `"}}`)
	}
	return resp, nil
}

func (f *fakePBX) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakePBX) query(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}
