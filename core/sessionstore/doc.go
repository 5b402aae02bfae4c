// Package sessionstore persists the last session of each CudaTel user.
//
// A Record holds whatever the server returned on login together with the
// token of that login. Its JSON form is flat:
//
//	{"bbx_user_id": 1, "bbx_user_username": "admin", "last_sessionid": "..."}
//
// Memory and File implement Store here; network backends live under
// integration/sessionstore. Every Store returns ErrNotFound for unknown
// usernames and treats Delete of a missing record as success.
package sessionstore
