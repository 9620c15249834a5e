package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
	"github.com/etpu-project/etpu-go/pkg/transport"
	"github.com/etpu-project/etpu-go/pkg/wire"
)

// DefaultResponseTimeout bounds the wait for one response.
const DefaultResponseTimeout = 10 * time.Second

// StatusError is a non-OK bridge response.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bridge: %s", e.Status)
	}
	return fmt.Sprintf("bridge: %s: %s", e.Status, e.Message)
}

// Unwrap maps the status back to the error the SoC reported, so callers can
// test remote and local failures the same way.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case wire.StatusBusError:
		return soc.ErrBusError
	case wire.StatusStalled:
		return soc.ErrStalled
	case wire.StatusBusy:
		return clock.ErrNoLock
	default:
		return nil
	}
}

// ErrNoResponse is returned when no matching response arrives in time.
var ErrNoResponse = errors.New("bridge: no response")

// Conn is the frame connection a Client talks over; *transport.ClientConn
// implements it.
type Conn interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

var _ Conn = (*transport.ClientConn)(nil)

// Client is the host side of a bridge.
type Client struct {
	conn    Conn
	timeout time.Duration
	nextID  atomic.Uint32
	mu      sync.Mutex
}

// Dial connects to a bridge server.
func Dial(ctx context.Context, address string, logger log.Logger) (*Client, error) {
	conn, err := transport.Dial(ctx, address, transport.ClientConfig{Logger: logger})
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn Conn) *Client {
	return &Client{conn: conn, timeout: DefaultResponseTimeout}
}

// SetTimeout changes the response timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Read reads the word at byteAddr.
func (c *Client) Read(byteAddr uint32) (uint32, error) {
	resp, err := c.do(&wire.Request{Op: wire.OpRead, Address: byteAddr})
	if err != nil {
		return 0, err
	}
	return resp.Data, nil
}

// Write writes a full word.
func (c *Client) Write(byteAddr, data uint32) error {
	return c.WriteMasked(byteAddr, data, wire.MaxSelect)
}

// WriteMasked writes the lanes of data selected by sel.
func (c *Client) WriteMasked(byteAddr, data uint32, sel uint8) error {
	_, err := c.do(&wire.Request{Op: wire.OpWrite, Address: byteAddr, Data: data, Select: sel})
	return err
}

// Reset pulses the SoC's soft reset for the given cycles.
func (c *Client) Reset(cycles uint32) error {
	_, err := c.do(&wire.Request{Op: wire.OpReset, Data: cycles})
	return err
}

// Info returns the SoC description.
func (c *Client) Info() (*wire.InfoPayload, error) {
	resp, err := c.do(&wire.Request{Op: wire.OpInfo})
	if err != nil {
		return nil, err
	}
	if resp.Payload == nil {
		return nil, fmt.Errorf("bridge: info response without payload")
	}
	return resp.Payload, nil
}

func (c *Client) do(req *wire.Request) (*wire.Response, error) {
	req.MessageID = c.allocID()
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.Send(data); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Op, err)
	}

	deadline := time.Now().Add(c.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%s #%d: %w", req.Op, req.MessageID, ErrNoResponse)
		}
		raw, err := c.conn.Receive(remaining)
		if err != nil {
			return nil, fmt.Errorf("receive %s: %w", req.Op, err)
		}
		resp, err := wire.DecodeResponse(raw)
		if err != nil {
			return nil, err
		}
		// Late answers to abandoned requests are dropped.
		if resp.MessageID != req.MessageID {
			continue
		}
		if !resp.IsSuccess() {
			return resp, &StatusError{Status: resp.Status, Message: resp.Message}
		}
		return resp, nil
	}
}

func (c *Client) allocID() uint32 {
	for {
		if id := c.nextID.Add(1); id != 0 {
			return id
		}
	}
}
