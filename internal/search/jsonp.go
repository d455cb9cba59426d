package search

import (
	"bytes"
	"errors"
)

var errBadJSONP = errors.New("malformed jsonp payload")

// unwrapJSONP returns the JSON argument of a `callback(...)` script. Plain
// JSON bodies are returned unchanged so servers that ignore the callback
// parameter still work.
func unwrapJSONP(body []byte) ([]byte, error) {
	b := bytes.TrimSpace(body)
	// Some servers prefix the call with an empty comment to defeat content sniffing
	b = bytes.TrimSpace(bytes.TrimPrefix(b, []byte("/**/")))
	if len(b) == 0 {
		return nil, errBadJSONP
	}
	if looksLikeJSON(b) {
		return b, nil
	}
	open := bytes.IndexByte(b, '(')
	if open <= 0 || !isCallbackName(b[:open]) {
		return nil, errBadJSONP
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b[open+1:]), []byte(";"))
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[len(b)-1] != ')' {
		return nil, errBadJSONP
	}
	return bytes.TrimSpace(b[:len(b)-1]), nil
}

func looksLikeJSON(b []byte) bool {
	switch c := b[0]; {
	case c == '[', c == '{', c == '"', c == '-', c >= '0' && c <= '9':
		return true
	}
	for _, lit := range []string{"null", "true", "false"} {
		if string(b) == lit {
			return true
		}
	}
	return false
}

func isCallbackName(b []byte) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '$', c == '.':
		default:
			return false
		}
	}
	return true
}
