package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/veramoney/chatmesh/logging"
)

const (
	defaultMaxRetries = 3
	initialRetryDelay = time.Second
	retryBackoff      = 2
)

// ClientOptions configure the streaming chat client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     logging.Logger
	// MaxRetries bounds reconnection attempts after the initial request;
	// zero selects the default.
	MaxRetries int
	// InitialDelay is the first backoff delay; zero selects the default.
	InitialDelay time.Duration
}

// Client consumes the chat SSE endpoint with bounded reconnection. Network,
// timeout and server failures are retried with exponential backoff;
// authentication and rate-limit responses terminate immediately. When all
// attempts fail the handler receives a final error event with a user-safe
// message, so consumers always observe a terminated stream.
type Client struct {
	opts ClientOptions
}

// NewClient constructs a Client.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		BaseURL:      os.Getenv("CHATMESH_URL"),
		HTTPClient:   http.DefaultClient,
		Logger:       logging.NoOpLogger{},
		MaxRetries:   defaultMaxRetries,
		InitialDelay: initialRetryDelay,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = initialRetryDelay
	}
	return &Client{opts: opts}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// StreamChat sends one chat message and forwards each stream event to
// handle until a terminal event arrives. The returned error reports the
// underlying transport failure when the stream could not be completed; the
// handler has already received a user-safe error event in that case.
func (c *Client) StreamChat(ctx context.Context, sessionID, message string, handle func(Event) error) error {
	delay := c.opts.InitialDelay

	// The initial request does not count against the retry budget: a
	// bounded sequence of transient failures ending in a success must
	// complete the stream without surfacing an error.
	var lastErr *TransportError
	for retry := 0; ; retry++ {
		err := c.fetch(ctx, sessionID, message, handle)
		if err == nil {
			return nil
		}

		var te *TransportError
		if !errors.As(err, &te) {
			// Handler failures and cancellation propagate untouched.
			return err
		}
		lastErr = te

		if !te.Retryable() {
			c.opts.Logger.Warn("stream.terminal", "kind", string(te.Kind), "status", te.StatusCode)
			break
		}

		if retry == c.opts.MaxRetries {
			c.opts.Logger.Warn("stream.exhausted", "retries", retry, "kind", string(te.Kind))
			break
		}

		c.opts.Logger.Warn("stream.retry",
			"retry", retry+1,
			"max", c.opts.MaxRetries,
			"kind", string(te.Kind),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= retryBackoff
	}

	if sendErr := handle(Error(lastErr.UserMessage())); sendErr != nil {
		return sendErr
	}

	return lastErr
}

func (c *Client) fetch(ctx context.Context, sessionID, message string, handle func(Event) error) error {
	body, err := json.Marshal(chatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.opts.APIKey != "" {
		req.Header.Set("X-API-Key", c.opts.APIKey)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		kind := TransportNetwork
		if isTimeout(err) {
			kind = TransportTimeout
		}
		return &TransportError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode)
	}

	return c.consume(resp, handle)
}

// consume parses the SSE body line by line, dispatching complete events.
func (c *Client) consume(resp *http.Response, handle func(Event) error) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	currentType := ""
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event:"):
			currentType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if raw == "" {
				continue
			}
			if !json.Valid([]byte(raw)) {
				c.opts.Logger.Warn("stream.parse_error", "raw", raw)
				currentType = ""
				continue
			}

			evType := EventType(currentType)
			if currentType == "" {
				evType = EventToken
			}
			if err := handle(Event{Type: evType, Data: json.RawMessage(raw)}); err != nil {
				return err
			}
			if evType.Terminal() {
				return nil
			}
			currentType = ""
		}
	}
	if err := scanner.Err(); err != nil {
		kind := TransportNetwork
		if isTimeout(err) {
			kind = TransportTimeout
		}
		return &TransportError{Kind: kind, Err: err}
	}

	// Stream ended without a terminal event: treat as a server failure so
	// the caller retries.
	return &TransportError{Kind: TransportServer}
}

func classifyStatus(status int) *TransportError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &TransportError{Kind: TransportAuth, StatusCode: status}
	case status == http.StatusTooManyRequests:
		return &TransportError{Kind: TransportRateLimited, StatusCode: status}
	default:
		return &TransportError{Kind: TransportServer, StatusCode: status}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
