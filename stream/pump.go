package stream

import (
	"context"

	"github.com/veramoney/chatmesh/core"
)

// Pump converts a supervisor run into stream events, forwarding each through
// send until the run completes. Exactly one terminal event is sent: done on
// success, error otherwise. A failing send aborts the pump.
func Pump(ctx context.Context, events <-chan core.Event, errs <-chan error, send func(Event) error) error {
	sawTokens := false

	for ev := range events {
		for _, out := range convert(ev, &sawTokens) {
			if err := send(out); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if err := <-errs; err != nil {
		if sendErr := send(Error("")); sendErr != nil {
			return sendErr
		}
		return err
	}

	return send(Done())
}

// convert maps one run event to zero or more stream events.
func convert(ev core.Event, sawTokens *bool) []Event {
	if ev.Content == nil {
		return nil
	}

	var out []Event

	if ev.IsPartial() {
		if text := ev.Content.Text(); text != "" {
			*sawTokens = true
			out = append(out, Token(text))
		}
		return out
	}

	for _, call := range ev.GetFunctionCalls() {
		args, err := call.ArgumentsMap()
		if err != nil {
			args = map[string]any{}
		}
		out = append(out, ToolCall(call.Name, args))
	}

	for _, resp := range ev.GetFunctionResponses() {
		out = append(out, ToolResult(resp.Name, resp.Content))
	}

	// The final turn text is only surfaced here when no partial tokens
	// streamed it already (non-streaming models).
	if ev.TurnComplete != nil && *ev.TurnComplete && !*sawTokens {
		if text := ev.Content.Text(); text != "" {
			out = append(out, Token(text))
		}
	}

	return out
}
