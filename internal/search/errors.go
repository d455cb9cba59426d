package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/goferret/internal/fetch"
)

// ErrorInfo is a failure reduced to what the UI shows.
type ErrorInfo struct {
	Code    int
	Message string
}

func (e ErrorInfo) String() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

const unknownError = "unknown error"

// Normalize reduces any failure to an ErrorInfo. The code is the HTTP status
// when there is one. The message is the status text, else the error text;
// a `message` or `error` string in a JSON error body overrides both.
func Normalize(err error) ErrorInfo {
	info := ErrorInfo{Message: unknownError}
	if err == nil {
		return info
	}
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			info.Message = msg
		}
		return info
	}
	info.Code = se.Status
	switch {
	case strings.TrimSpace(se.StatusText) != "":
		info.Message = se.StatusText
	case se.Error() != "":
		info.Message = se.Error()
	}
	if msg := bodyMessage(se.Body); msg != "" {
		info.Message = msg
	}
	return info
}

// bodyMessage extracts the backend's own explanation from an error body,
// which may itself be JSONP-wrapped.
func bodyMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	raw, err := unwrapJSONP(body)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	for _, k := range []string{"message", "error"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
