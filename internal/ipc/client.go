package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client talks to the daemon control socket. A mutex serializes
// request/response pairs on the single connection.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	encoder *json.Encoder
	decoder *json.Decoder
}

// Dial connects to the control socket at the given path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    conn,
		encoder: json.NewEncoder(conn),
		decoder: json.NewDecoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusPayload, error) {
	resp, err := c.call(OpStatus)
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, errors.New("status response missing payload")
	}
	return resp.Status, nil
}

// Run asks the daemon to start a scan cycle now.
func (c *Client) Run() (*RunPayload, error) {
	resp, err := c.call(OpRun)
	if err != nil {
		return nil, err
	}
	if resp.Run == nil {
		return nil, errors.New("run response missing payload")
	}
	return resp.Run, nil
}

// Stop asks the daemon process to shut down.
func (c *Client) Stop() (*StopPayload, error) {
	resp, err := c.call(OpStop)
	if err != nil {
		return nil, err
	}
	if resp.Stop == nil {
		return nil, errors.New("stop response missing payload")
	}
	return resp.Stop, nil
}

func (c *Client) call(op string) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request{ID: uuid.NewString(), Op: op}
	if err := c.encoder.Encode(req); err != nil {
		return Response{}, fmt.Errorf("send %s request: %w", op, err)
	}
	var resp Response
	if err := c.decoder.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return Response{}, errors.New(resp.Error)
	}
	return resp, nil
}
