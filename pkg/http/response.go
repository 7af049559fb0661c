package http

import (
	"encoding/json"
	"net/http"
)

const (
	MessageFailure  string = "failure"
	MessageNoRunYet string = "no run yet"
	MessageSuccess  string = "success"
)

// Response is the JSON envelope of every non-metrics endpoint.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Write(w http.ResponseWriter, httpcode int, r *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpcode)
	_ = json.NewEncoder(w).Encode(r)
}

// Read decodes a body written by Write.
func Read(resp *http.Response) (Response, error) {
	var r Response
	err := json.NewDecoder(resp.Body).Decode(&r)
	return r, err
}
