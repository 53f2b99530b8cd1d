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

// Start requests the daemon to launch syncthing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Seam.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests a graceful syncthing shutdown.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Seam.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Restart asks the running instance to restart itself.
func (c *Client) Restart() (*RestartResponse, error) {
	var resp RestartResponse
	if err := c.client.Call("Seam.Restart", RestartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Kill terminates syncthing immediately. When all is set, stray
// instances of the same executable are killed too.
func (c *Client) Kill(all bool) (*KillResponse, error) {
	var resp KillResponse
	if err := c.client.Call("Seam.Kill", KillRequest{All: all}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan triggers a folder rescan.
func (c *Client) Scan(folderID, subPath string) (*ScanResponse, error) {
	var resp ScanResponse
	req := ScanRequest{FolderID: folderID, SubPath: subPath}
	if err := c.client.Call("Seam.Scan", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReloadIgnores refetches ignore patterns for a folder.
func (c *Client) ReloadIgnores(folderID string) (*ReloadIgnoresResponse, error) {
	var resp ReloadIgnoresResponse
	req := ReloadIgnoresRequest{FolderID: folderID}
	if err := c.client.Call("Seam.ReloadIgnores", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Seam.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Folders lists the registry's folders.
func (c *Client) Folders() (*FoldersResponse, error) {
	var resp FoldersResponse
	if err := c.client.Call("Seam.Folders", FoldersRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Devices lists the registry's devices.
func (c *Client) Devices() (*DevicesResponse, error) {
	var resp DevicesResponse
	if err := c.client.Call("Seam.Devices", DevicesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns recent journal entries.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	req := HistoryRequest{Limit: limit}
	if err := c.client.Call("Seam.History", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Seam.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
