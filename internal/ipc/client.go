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

// Start requests daemon startup.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Glossa.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests daemon shutdown.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Glossa.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Glossa.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Translate submits a PDF for translation.
func (c *Client) Translate(req TranslateRequest) (*TranslateResponse, error) {
	var resp TranslateResponse
	if err := c.client.Call("Glossa.Translate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns translation history.
func (c *Client) JobList(limit int) (*JobListResponse, error) {
	var resp JobListResponse
	if err := c.client.Call("Glossa.JobList", JobListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobDescribe returns details for a single job.
func (c *Client) JobDescribe(id string) (*JobDescribeResponse, error) {
	var resp JobDescribeResponse
	if err := c.client.Call("Glossa.JobDescribe", JobDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobEvents fetches a page of a job's event stream.
func (c *Client) JobEvents(req JobEventsRequest) (*JobEventsResponse, error) {
	var resp JobEventsResponse
	if err := c.client.Call("Glossa.JobEvents", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobsClear removes history entries.
func (c *Client) JobsClear(all bool) (*JobsClearResponse, error) {
	var resp JobsClearResponse
	if err := c.client.Call("Glossa.JobsClear", JobsClearRequest{All: all}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns buffered log events from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Glossa.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
