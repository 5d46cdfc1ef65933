// Package apimodel holds the JSON documents exchanged with the miniscreend
// control API.
package apimodel

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// ErrorMessage is the envelope of every answer that carries no document,
// successful ones included.
type ErrorMessage struct {
	ErrStatusCode int    `json:"status_code"`
	ErrMessage    string `json:"message"`
}

func (e *ErrorMessage) StatusCode() int {
	return e.ErrStatusCode
}

func (e *ErrorMessage) Error() string {
	if e.ErrMessage == "" {
		return strconv.Itoa(e.ErrStatusCode)
	}
	return strconv.Itoa(e.ErrStatusCode) + ":" + e.ErrMessage
}

// Send writes the envelope, filling a missing message from the status.
func (e ErrorMessage) Send(w http.ResponseWriter) {
	if e.ErrMessage == "" {
		e.ErrMessage = DefaultMessage(e.ErrStatusCode)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.ErrStatusCode)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		logrus.Warnf("Unable to encode error message: %v", err)
	}
}

func DefaultMessage(status int) string {
	switch status {
	case http.StatusOK:
		return "Ok"
	case http.StatusNotFound:
		return "Page not found"
	case http.StatusMethodNotAllowed:
		return "Method not allowed"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	case http.StatusBadRequest:
		return "Bad request"
	default:
		return "Internal error"
	}
}

var WrongParametersErrorMessage = ErrorMessage{
	ErrStatusCode: http.StatusBadRequest,
	ErrMessage:    "unable to parse parameters",
}
