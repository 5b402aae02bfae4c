package tunnel

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/cudatel/pkg/query"
)

// CudaTel GUI endpoints.
const (
	LoginPath  = "/gui/login/login"
	StatusPath = "/gui/login/status"
	LogoutPath = "/gui/login/logout"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "bps_session"

const (
	sessionParam = "sessionid"
	userField    = "__auth_user"
	passField    = "__auth_pass"
)

// Credentials authenticate a CudaTel user.
type Credentials struct {
	User string
	Pass string
}

// Category classifies a request path.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryLogin
	CategoryLogout
)

func (c Category) String() string {
	switch c {
	case CategoryLogin:
		return "login"
	case CategoryLogout:
		return "logout"
	default:
		return "generic"
	}
}

// Classify returns the category of path.
// Logout requests are shaped like generic ones; the category only tells the
// manager to route them through Shut.
func Classify(path string) Category {
	switch {
	case strings.Contains(path, "login/login"):
		return CategoryLogin
	case strings.Contains(path, "login/logout"):
		return CategoryLogout
	default:
		return CategoryGeneric
	}
}

// Descriptor is a transport-agnostic request.
type Descriptor struct {
	Category Category
	Method   string
	URL      string
	Header   http.Header
	// Form is the urlencoded body of a login request; nil otherwise.
	Form url.Values
}

// Builder produces request descriptors for one CudaTel host.
type Builder struct {
	host   string
	scheme string
}

// NewBuilder returns a builder for host. An empty scheme means "http".
func NewBuilder(host, scheme string) (*Builder, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.Join(ErrConfiguration, errors.New("host is required"))
	}
	if scheme == "" {
		scheme = "http"
	}
	return &Builder{host: host, scheme: scheme}, nil
}

// Host returns the configured host.
func (b *Builder) Host() string {
	return b.host
}

// Build creates the descriptor for path.
//
// Login requests are POSTed with the credentials as form fields. Every other
// path is a GET whose query is the payload followed by sessionid=token; a
// sessionid already present in the payload is overwritten in place.
func (b *Builder) Build(path, token string, creds Credentials, payload any) (Descriptor, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	origin := b.scheme + "://" + b.host
	d := Descriptor{
		Category: Classify(path),
		Header:   make(http.Header, 4),
	}
	d.Header.Set("Host", b.host)
	d.Header.Set("Origin", origin)
	d.Header.Set("Referer", origin+"/")

	if d.Category == CategoryLogin {
		d.Method = http.MethodPost
		d.URL = origin + path
		d.Form = url.Values{
			userField: {creds.User},
			passField: {creds.Pass},
		}
		return d, nil
	}

	if token == "" {
		return Descriptor{}, ErrNotAuthenticated
	}

	params := query.From(payload).Set(sessionParam, token)
	d.Method = http.MethodGet
	d.URL = origin + path + query.Serialize(params)
	d.Header.Set("Cookie", SessionCookie+"="+token+";")
	return d, nil
}
