package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves combined daemon and session status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Reel.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartSession launches a capture session for a source.
func (c *Client) StartSession(source, quality string) (*StartSessionResponse, error) {
	var resp StartSessionResponse
	req := StartSessionRequest{Source: source, Quality: quality}
	if err := c.client.Call("Reel.StartSession", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopSession stops the active capture session. Stopped is false when no
// session was running.
func (c *Client) StopSession() (*StopSessionResponse, error) {
	var resp StopSessionResponse
	if err := c.client.Call("Reel.StopSession", StopSessionRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BufferStatus retrieves the rolling buffer snapshot.
func (c *Client) BufferStatus() (*BufferStatusResponse, error) {
	var resp BufferStatusResponse
	if err := c.client.Call("Reel.BufferStatus", BufferStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateClip submits a clip extraction job.
func (c *Client) CreateClip(req CreateClipRequest) (*CreateClipResponse, error) {
	var resp CreateClipResponse
	if err := c.client.Call("Reel.CreateClip", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClipStatus fetches one clip job by id or request id.
func (c *Client) ClipStatus(req ClipStatusRequest) (*ClipStatusResponse, error) {
	var resp ClipStatusResponse
	if err := c.client.Call("Reel.ClipStatus", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListClips returns clip jobs newest first.
func (c *Client) ListClips(limit int, statuses []string) (*ListClipsResponse, error) {
	var resp ListClipsResponse
	req := ListClipsRequest{Limit: limit, Statuses: statuses}
	if err := c.client.Call("Reel.ListClips", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveClip deletes a clip job row.
func (c *Client) RemoveClip(id int64) (*RemoveClipResponse, error) {
	var resp RemoveClipResponse
	if err := c.client.Call("Reel.RemoveClip", RemoveClipRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSources returns monitored source states.
func (c *Client) ListSources() (*ListSourcesResponse, error) {
	var resp ListSourcesResponse
	if err := c.client.Call("Reel.ListSources", ListSourcesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddSource registers a source with the liveness monitor.
func (c *Client) AddSource(source string) (*AddSourceResponse, error) {
	var resp AddSourceResponse
	if err := c.client.Call("Reel.AddSource", AddSourceRequest{Source: source}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveSource drops a source from the liveness monitor.
func (c *Client) RemoveSource(source string) (*RemoveSourceResponse, error) {
	var resp RemoveSourceResponse
	if err := c.client.Call("Reel.RemoveSource", RemoveSourceRequest{Source: source}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProbeSource runs a one-off liveness probe.
func (c *Client) ProbeSource(source string) (*ProbeSourceResponse, error) {
	var resp ProbeSourceResponse
	if err := c.client.Call("Reel.ProbeSource", ProbeSourceRequest{Source: source}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Reel.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Reel.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves clip store diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Reel.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Reel.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
