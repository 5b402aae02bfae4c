package tunnel

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Result is what Open and Send return: the current token and the response data.
type Result struct {
	SessionID string
	Data      json.RawMessage
	// Unauthorized is set when the server answered NOTAUTHORIZED.
	Unauthorized bool
	// Logout is set when Send was routed to Shut. Data stays empty then.
	Logout *LogoutResult
}

// Decode unmarshals Data into v. Empty data leaves v untouched.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Get reads a value from Data with a gjson path such as "data.0.bbx_user_id".
func (r Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Data, path)
}

// LogoutResult is what Shut returns.
type LogoutResult struct {
	SessionID string
	// LoggedOut reports whether the persisted record was wiped.
	LoggedOut bool
}
