// Package fleetapi is the fleet management REST API catalogue: the auth
// endpoints the session layer needs and the business endpoints the CLI
// screens call.
package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	fleeterrors "github.com/jrsteele09/go-fleet-admin/internal/errors"
	"github.com/jrsteele09/go-fleet-admin/transport"
	"github.com/pkg/errors"
)

// Sender dispatches an authorised request. gateway.Gateway implements it.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, req transport.Request) (*transport.Response, error)

func (f SenderFunc) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	return f(ctx, req)
}

// decode unpacks a successful response into out. The server wraps most
// payloads as {"data": ...} but not all, so both shapes are accepted.
func decode(resp *transport.Response, out any) error {
	if !resp.OK() {
		return statusError(resp)
	}
	body := bytes.TrimSpace(resp.Body)
	if out == nil || len(body) == 0 {
		return nil
	}

	if body[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			body = envelope.Data
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "[decode] malformed response body")
	}
	return nil
}

// statusError converts a non-2xx response into a *StatusError carrying the
// server's message when it sent one.
func statusError(resp *transport.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(resp.Body, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	return &fleeterrors.StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(message)}
}

// call sends req through sender and decodes the result into out.
func call(ctx context.Context, sender Sender, req transport.Request, out any) error {
	resp, err := sender.Send(ctx, req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}
