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

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// SubscribeAdd adds a subscription.
func (c *Client) SubscribeAdd(req SubscribeAddRequest) (*SubscribeAddResponse, error) {
	return call[SubscribeAddResponse](c, "SubscribeAdd", req)
}

// SubscribeList lists subscriptions, optionally filtered by state.
func (c *Client) SubscribeList(states []string) (*SubscribeListResponse, error) {
	return call[SubscribeListResponse](c, "SubscribeList", SubscribeListRequest{States: states})
}

// SubscribeRemove deletes a subscription.
func (c *Client) SubscribeRemove(id int64) (*SubscribeRemoveResponse, error) {
	return call[SubscribeRemoveResponse](c, "SubscribeRemove", SubscribeRemoveRequest{ID: id})
}

// SubscribeSearch runs a direct search for one subscription, or all when id
// is zero.
func (c *Client) SubscribeSearch(id int64) (*SummaryResponse, error) {
	return call[SummaryResponse](c, "SubscribeSearch", SubscribeSearchRequest{ID: id})
}

// Refresh runs one refresh and match cycle.
func (c *Client) Refresh() (*SummaryResponse, error) {
	return call[SummaryResponse](c, "Refresh", RefreshRequest{})
}

// CacheList returns cache rows.
func (c *Client) CacheList(sentinels bool) (*CacheListResponse, error) {
	return call[CacheListResponse](c, "CacheList", CacheListRequest{Sentinels: sentinels})
}

// CacheShow returns one cache entry.
func (c *Client) CacheShow(key string) (*CacheEntryResponse, error) {
	return call[CacheEntryResponse](c, "CacheShow", CacheKeyRequest{Key: key})
}

// CacheRename replaces the title of a cache entry.
func (c *Client) CacheRename(key, title string) (*CacheEntryResponse, error) {
	return call[CacheEntryResponse](c, "CacheRename", CacheRenameRequest{Key: key, Title: title})
}

// CacheInvalidate removes cache entries.
func (c *Client) CacheInvalidate(req CacheInvalidateRequest) (*CacheRemovedResponse, error) {
	return call[CacheRemovedResponse](c, "CacheInvalidate", req)
}

// CacheClear drops every cache entry.
func (c *Client) CacheClear() (*CacheRemovedResponse, error) {
	return call[CacheRemovedResponse](c, "CacheClear", CacheClearRequest{})
}

// CacheSave forces a cache save.
func (c *Client) CacheSave() (*CacheSaveResponse, error) {
	return call[CacheSaveResponse](c, "CacheSave", CacheSaveRequest{})
}

// WishlistSync runs a watchlist sync now.
func (c *Client) WishlistSync() (*WishlistSyncResponse, error) {
	return call[WishlistSyncResponse](c, "WishlistSync", WishlistSyncRequest{})
}

// IndexersCheck probes every configured indexer.
func (c *Client) IndexersCheck() (*IndexersCheckResponse, error) {
	return call[IndexersCheckResponse](c, "IndexersCheck", IndexersCheckRequest{})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
