package tunnel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/cudatel/core/logger"
	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

// notAuthorized is the server's "error" value for a rejected session or login.
const notAuthorized = "NOTAUTHORIZED"

// OutcomeKind tells the manager what a response means for the session.
type OutcomeKind int

const (
	// OutcomePassThrough: an ordinary response; the session is unchanged.
	OutcomePassThrough OutcomeKind = iota
	// OutcomeLoggedIn: a login succeeded and the new token was persisted.
	OutcomeLoggedIn
	// OutcomeRetryLogin: the login was rejected with NOTAUTHORIZED.
	OutcomeRetryLogin
	// OutcomeLoggedOut: the server completed a logout; the record was wiped.
	OutcomeLoggedOut
)

// Outcome is the routed result of a response.
type Outcome struct {
	Kind      OutcomeKind
	SessionID string
	Data      json.RawMessage
	// Unauthorized is set on pass-through responses carrying NOTAUTHORIZED.
	Unauthorized bool
	// Wiped reports whether the record was deleted on logout.
	Wiped bool
}

// Router applies the post-processing rule for each response.
type Router struct {
	store  sessionstore.Store
	logger *slog.Logger
}

// NewRouter returns a router persisting sessions to store.
func NewRouter(store sessionstore.Store, log *slog.Logger) *Router {
	if log == nil {
		log = logger.Discard()
	}
	return &Router{store: store, logger: log}
}

// Route interprets resp. Logout is recognised from the final response URL,
// not from the request category. A failed wipe is returned as ErrPersistence
// together with the logout outcome.
func (r *Router) Route(ctx context.Context, category Category, username, token string, resp *Response) (Outcome, error) {
	if resp == nil {
		return Outcome{}, errors.Join(ErrMalformedResponse, errors.New("empty response"))
	}

	if resp.URL != nil && strings.Contains(resp.URL.Path, "login/logout") {
		return r.loggedOut(ctx, username, token)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && !gjson.ValidBytes(body) {
		return Outcome{}, errors.Join(ErrMalformedResponse, errors.New("response body is not JSON"))
	}
	rejected := len(body) > 0 && gjson.GetBytes(body, "error").String() == notAuthorized

	if category != CategoryLogin {
		out := Outcome{Kind: OutcomePassThrough, SessionID: token, Unauthorized: rejected}
		if len(body) > 0 {
			out.Data = json.RawMessage(body)
		}
		return out, nil
	}

	if rejected {
		return Outcome{Kind: OutcomeRetryLogin}, nil
	}
	return r.loggedIn(ctx, username, body, resp)
}

func (r *Router) loggedIn(ctx context.Context, username string, body []byte, resp *Response) (Outcome, error) {
	token, err := ExtractToken(resp.Header)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kind: OutcomeLoggedIn, SessionID: token}
	fields := map[string]any{}

	if data := gjson.GetBytes(body, "data"); data.Exists() {
		out.Data = json.RawMessage(data.Raw)
		if data.IsObject() {
			if err := json.Unmarshal([]byte(data.Raw), &fields); err != nil {
				return Outcome{}, errors.Join(ErrMalformedResponse, err)
			}
		}
	}

	rec := sessionstore.Record{Fields: fields, LastSessionID: token}
	if err := r.store.Save(ctx, username, rec); err != nil {
		r.logger.ErrorContext(ctx, "failed to persist session",
			logger.Username(username),
			logger.Error(err))
		return Outcome{}, errors.Join(ErrPersistence, err)
	}

	return out, nil
}

func (r *Router) loggedOut(ctx context.Context, username, token string) (Outcome, error) {
	out := Outcome{Kind: OutcomeLoggedOut, SessionID: token}

	if err := r.store.Delete(ctx, username); err != nil {
		r.logger.ErrorContext(ctx, "failed to wipe session",
			logger.Username(username),
			logger.Error(err))
		return out, errors.Join(ErrPersistence, err)
	}

	out.Wiped = true
	return out, nil
}
