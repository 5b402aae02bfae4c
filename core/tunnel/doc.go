// Package tunnel keeps an authenticated session with a CudaTel server and
// forwards requests to its GUI API.
//
// A Manager owns the session token. Open reuses the token cached in a
// sessionstore.Store when the server's status endpoint still accepts it and
// logs in otherwise, retrying exactly once when the server answers
// NOTAUTHORIZED:
//
//	m, err := tunnel.NewManager("10.0.0.5", sessionstore.NewFile("sessions.json"),
//		tunnel.WithTimeout(30*time.Second),
//		tunnel.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	res, err := m.Open(ctx, tunnel.Credentials{User: "admin", Pass: pass})
//	if err != nil {
//		return err
//	}
//	users, err := m.Send(ctx, "/gui/user/list", query.New().Set("rows", 50))
//	...
//	out, err := m.Shut(ctx)
//
// Lifecycle: Idle → Resolving → Authenticated, with Retrying for fresh
// logins and LoggedOut after Shut. Send before the session is Authenticated
// fails with ErrNotAuthenticated without issuing a request.
//
// Errors are sentinels joined with the underlying cause; match them with
// errors.Is. State changes and session events are published to an optional
// Publisher such as *event.Publisher.
package tunnel
