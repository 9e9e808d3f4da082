package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoPrediction the service answered but the body carries no usable prediction
var ErrNoPrediction = errors.New("no prediction in response")

// TransportError request could not complete, no response from service
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("predict transport err=%s", e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError service answered with a non 2xx status
type ServerError struct {
	StatusCode int
	// Message the optional "error" field of the response body
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("predict server status=%d message=%s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

func newServerError(code int, body []byte) *ServerError {
	ret := &ServerError{StatusCode: code}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		ret.Message = eb.Error
	}
	return ret
}
