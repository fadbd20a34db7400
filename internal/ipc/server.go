package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"moviepilot/internal/api"
	"moviepilot/internal/daemon"
	"moviepilot/internal/logging"
	"moviepilot/internal/logs"
	"moviepilot/internal/media"
	"moviepilot/internal/metacache"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/subscription"
)

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "MoviePilot"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun moviepilot stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx).DTO()
	return nil
}

func (s *service) SubscribeAdd(req SubscribeAddRequest, resp *SubscribeAddResponse) error {
	kind, err := media.ParseKind(req.Kind)
	if err != nil {
		return err
	}
	sub, err := s.daemon.Subscribe(s.ctx, reconcile.AddRequest{
		Title:    req.Title,
		Year:     req.Year,
		Kind:     kind,
		Season:   req.Season,
		TMDBID:   req.TMDBID,
		IMDbID:   req.IMDbID,
		Keyword:  req.Keyword,
		Username: req.Username,
	})
	if errors.Is(err, subscription.ErrDuplicate) && sub != nil {
		resp.Item = api.FromSubscription(sub)
		resp.Duplicate = true
		return nil
	}
	if err != nil {
		return err
	}
	resp.Item = api.FromSubscription(sub)
	return nil
}

func (s *service) SubscribeList(req SubscribeListRequest, resp *SubscribeListResponse) error {
	states := make([]subscription.State, 0, len(req.States))
	for _, value := range req.States {
		if strings.TrimSpace(value) == "" {
			continue
		}
		state, err := subscription.ParseState(value)
		if err != nil {
			return err
		}
		states = append(states, state)
	}
	subs, err := s.daemon.Subscriptions(s.ctx, states...)
	if err != nil {
		return err
	}
	resp.Items = api.FromSubscriptions(subs)
	return nil
}

func (s *service) SubscribeRemove(req SubscribeRemoveRequest, resp *SubscribeRemoveResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid subscription id %d", req.ID)
	}
	removed, err := s.daemon.RemoveSubscription(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) SubscribeSearch(req SubscribeSearchRequest, resp *SummaryResponse) error {
	if req.ID < 0 {
		return fmt.Errorf("invalid subscription id %d", req.ID)
	}
	summary, err := s.daemon.Search(s.ctx, req.ID)
	resp.Summary = api.FromSummary(summary)
	return err
}

func (s *service) Refresh(_ RefreshRequest, resp *SummaryResponse) error {
	summary, err := s.daemon.Refresh(s.ctx)
	resp.Summary = api.FromSummary(summary)
	return err
}

func (s *service) CacheList(req CacheListRequest, resp *CacheListResponse) error {
	cache := s.daemon.Cache()
	items := cache.List()
	resp.Items = make([]api.CacheEntry, 0, len(items))
	for _, item := range items {
		if item.Entry.IsSentinel() && !req.Sentinels {
			continue
		}
		resp.Items = append(resp.Items, api.FromCacheItem(item))
	}
	resp.Stats = api.FromCacheStats(cache.Stats())
	return nil
}

func (s *service) CacheShow(req CacheKeyRequest, resp *CacheEntryResponse) error {
	entry, ok := s.daemon.Cache().Peek(req.Key)
	if !ok {
		return fmt.Errorf("cache entry %q not found", req.Key)
	}
	resp.Item = api.FromCacheItem(metacache.Item{Key: strings.TrimSpace(req.Key), Entry: entry})
	return nil
}

func (s *service) CacheRename(req CacheRenameRequest, resp *CacheEntryResponse) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return errors.New("cache rename requires a title")
	}
	entry, err := s.daemon.Cache().Modify(req.Key, title)
	if errors.Is(err, metacache.ErrNotFound) {
		return fmt.Errorf("cache entry %q not found", req.Key)
	}
	if err != nil {
		return err
	}
	resp.Item = api.FromCacheItem(metacache.Item{Key: strings.TrimSpace(req.Key), Entry: entry})
	s.logger.Info("cache entry renamed",
		logging.String("key", req.Key),
		logging.String("title", title),
		logging.String(logging.FieldEventType, "cache_rename"))
	return nil
}

func (s *service) CacheInvalidate(req CacheInvalidateRequest, resp *CacheRemovedResponse) error {
	cache := s.daemon.Cache()
	if strings.TrimSpace(req.Key) == "" && req.TMDBID <= 0 && !req.Sentinels {
		return errors.New("cache invalidate requires a key, a tmdb id, or sentinels")
	}
	if strings.TrimSpace(req.Key) != "" {
		removed, err := cache.Delete(req.Key)
		if err != nil {
			return err
		}
		if removed {
			resp.Removed++
		}
	}
	if req.TMDBID > 0 {
		resp.Removed += cache.InvalidateByExternalID(req.TMDBID)
	}
	if req.Sentinels {
		resp.Removed += cache.InvalidateSentinels()
	}
	s.logger.Info("cache entries invalidated",
		logging.Int("removed", resp.Removed),
		logging.String(logging.FieldEventType, "cache_invalidate"))
	return nil
}

func (s *service) CacheClear(_ CacheClearRequest, resp *CacheRemovedResponse) error {
	cache := s.daemon.Cache()
	resp.Removed = cache.Count()
	cache.Clear()
	return nil
}

func (s *service) CacheSave(_ CacheSaveRequest, resp *CacheSaveResponse) error {
	cache := s.daemon.Cache()
	if err := cache.Save(true); err != nil {
		return err
	}
	resp.Stats = api.FromCacheStats(cache.Stats())
	return nil
}

func (s *service) WishlistSync(_ WishlistSyncRequest, resp *WishlistSyncResponse) error {
	result, err := s.daemon.SyncWishlist(s.ctx)
	if err != nil {
		return err
	}
	*resp = WishlistSyncResponse{
		Listed:     result.Listed,
		New:        result.New,
		Held:       result.Held,
		Downloaded: result.Downloaded,
		Subscribed: result.Subscribed,
		Failed:     result.Failed,
	}
	return nil
}

func (s *service) IndexersCheck(_ IndexersCheckRequest, resp *IndexersCheckResponse) error {
	checks := s.daemon.CheckIndexers(s.ctx)
	resp.Items = make([]IndexerCheck, 0, len(checks))
	for _, check := range checks {
		item := IndexerCheck{
			Name:     check.Name,
			Protocol: check.Protocol,
			Server:   check.Server,
			Login:    check.Login.String(),
		}
		if check.Err != nil {
			item.Error = check.Err.Error()
		}
		resp.Items = append(resp.Items, item)
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
		Filter: logs.Filter{Contains: req.Contains, SubscriptionID: req.SubscriptionID},
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
