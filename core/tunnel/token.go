package tunnel

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TokenLength is the length of a CudaTel session token.
const TokenLength = 40

// ExtractToken reads the session token from the first Set-Cookie value,
// which must start with "bps_session=".
func ExtractToken(h http.Header) (string, error) {
	cookies := h.Values("Set-Cookie")
	if len(cookies) == 0 {
		return "", errors.Join(ErrMalformedResponse, errors.New("missing Set-Cookie header"))
	}

	prefix := SessionCookie + "="
	value := cookies[0]
	if !strings.HasPrefix(value, prefix) {
		return "", errors.Join(ErrMalformedResponse, fmt.Errorf("unexpected cookie %q", cookieName(value)))
	}

	rest := value[len(prefix):]
	if len(rest) < TokenLength {
		return "", errors.Join(ErrMalformedResponse, fmt.Errorf("session cookie shorter than %d characters", TokenLength))
	}

	token := rest[:TokenLength]
	if strings.ContainsAny(token, "; \t") {
		return "", errors.Join(ErrMalformedResponse, errors.New("session cookie has invalid characters"))
	}
	return token, nil
}

func cookieName(v string) string {
	name, _, _ := strings.Cut(v, "=")
	return name
}
