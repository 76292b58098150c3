package api

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrEndpointMismatch means the server answered with an HTML document
// instead of the JSON envelope, which almost always means the base URL
// points at the wrong place.
var ErrEndpointMismatch = errors.New("server returned HTML, check the API base URL")

// APIError is a response the server parsed and rejected: success=false
// or a non-2xx status. Message carries the server-provided text when
// there is one, else a per-operation fallback.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

var htmlMarkers = [][]byte{
	[]byte("<!DOCTYPE html"),
	[]byte("<!doctype html"),
	[]byte("<html"),
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	for _, marker := range htmlMarkers {
		if bytes.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}
