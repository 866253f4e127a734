// internal/server/api.go
//
// JSON envelope shared by every /api handler.
//
// Context
// -------
// Handlers return (status, payload) or an *apiError; wrap writes either one
// as `{"ok": …}` JSON.  Error bodies carry only user-safe text.  Causes are
// logged by the handler that saw them.
//
//	201 {"ok":true,"id":"…"}
//	200 {"ok":true,"data":…}
//	4xx {"ok":false,"message":"…","errors":[…],"data":{…}}
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/yanizio/leadsite/internal/form"
	"github.com/yanizio/leadsite/internal/logger"
)

// response is the envelope written for every API call.
type response struct {
	OK      bool                   `json:"ok"`
	ID      string                 `json:"id,omitempty"`
	Message string                 `json:"message,omitempty"`
	Errors  []form.ValidationError `json:"errors,omitempty"`
	Data    any                    `json:"data,omitempty"`
}

// apiError is a failed call.  Body is written as-is.
type apiError struct {
	Status     int
	Body       response
	RetryAfter int // seconds, 429 only
}

func errorf(status int, msg string) *apiError {
	return &apiError{Status: status, Body: response{Message: msg}}
}

// handler is the signature every API endpoint implements.
type handler func(r *http.Request) (int, response, *apiError)

func wrap(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		status, body, apiErr := h(r)
		if apiErr != nil {
			if apiErr.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
			}
			status, body = apiErr.Status, apiErr.Body
			body.OK = false
		} else {
			body.OK = true
		}

		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.FromContext(r.Context()).Warnw("response encode failed", "err", err)
		}
	}
}

// readJSON decodes exactly one JSON value from the body into dst.  Unknown
// fields are kept so the submission pipeline can inspect them.
func readJSON(r *http.Request, dst any) *apiError {
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errorf(http.StatusRequestEntityTooLarge, "Request body too large.")
		}
		return errorf(http.StatusBadRequest, "Malformed JSON body.")
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errorf(http.StatusBadRequest, "Malformed JSON body.")
	}
	return nil
}

func notFound(r *http.Request) (int, response, *apiError) {
	return 0, response{}, errorf(http.StatusNotFound, "Not found.")
}
