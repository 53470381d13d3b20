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

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Start requests the daemon to start monitoring.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop monitoring.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns tracked files optionally filtered by state.
func (c *Client) List(states []string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.call("List", ListRequest{States: states}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Process forces processing of a single file.
func (c *Client) Process(path string) (*ProcessResponse, error) {
	var resp ProcessResponse
	if err := c.call("Process", ProcessRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan requests an immediate discovery scan.
func (c *Client) Scan() (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.call("Scan", ScanRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns recent journal events.
func (c *Client) Events(limit int) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.call("Events", EventsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call("LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
