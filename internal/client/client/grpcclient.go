package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// DefaultRequestTimeout bounds each unary call unless overridden.
const DefaultRequestTimeout = 10 * time.Second

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      rpc.DocumentServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	// onTokens is called after login and every refresh so the session can
	// be persisted.
	onTokens func(access, refresh string)
}

// Option configures a GRPCClient.
type Option func(*GRPCClient)

// WithRequestTimeout sets the per-call timeout for unary requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *GRPCClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTokenObserver registers fn to receive every new token pair.
func WithTokenObserver(fn func(access, refresh string)) Option {
	return func(c *GRPCClient) { c.onTokens = fn }
}

func NewFitSyncClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: DefaultRequestTimeout}
	for _, o := range opts {
		o(c)
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(c.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	c.conn = conn
	c.client = rpc.NewDocumentServiceClient(conn)
	return nil
}

func (c *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := c.timeout
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, d)
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (c *GRPCClient) currentAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// refresh exchanges the refresh token for a new pair. If another call
// already refreshed since stale was read, the newer token is reused.
func (c *GRPCClient) refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != stale {
		return c.accessToken, nil
	}
	if c.refreshToken == "" {
		return "", status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	resp, err := c.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: c.refreshToken})
	if err != nil {
		return "", err
	}
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	if c.onTokens != nil {
		c.onTokens(c.accessToken, c.refreshToken)
	}
	return c.accessToken, nil
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	// refresh runs under c.mu and must not re-enter it
	if method == rpc.RefreshTokenMethod {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token := c.currentAccessToken()
	err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	token, rerr := c.refresh(ctx, token)
	if rerr != nil {
		return rerr
	}
	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

func (c *GRPCClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *GRPCClient) Tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return c.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) Register(ctx context.Context, email, password string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.client.Register(ctx, &rpc.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *GRPCClient) Login(ctx context.Context, email, password string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Login(ctx, &rpc.LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", c.mapError(err)
	}

	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	if c.onTokens != nil {
		c.onTokens(resp.AccessToken, resp.RefreshToken)
	}
	return resp.Email, nil
}

func (c *GRPCClient) GetByID(ctx context.Context, collection, id string) (*models.Document, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetDocument(ctx, &rpc.GetDocumentRequest{Collection: collection, ID: id})
	if err != nil {
		return nil, c.mapError(err)
	}
	return toDocument(resp.Document), nil
}

func (c *GRPCClient) Write(ctx context.Context, collection, id string, payload json.RawMessage, merge bool) (*models.Document, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.WriteDocument(ctx, &rpc.WriteDocumentRequest{
		Collection: collection, ID: id, Payload: payload, Merge: merge,
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	return toDocument(resp.Document), nil
}

func (c *GRPCClient) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.client.DeleteDocument(ctx, &rpc.DeleteDocumentRequest{Collection: collection, ID: id}); err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *GRPCClient) PresignMediaUpload(ctx context.Context, contentType string) (string, string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.PresignMediaUpload(ctx, &rpc.PresignMediaUploadRequest{ContentType: contentType})
	if err != nil {
		return "", "", c.mapError(err)
	}
	return resp.Key, resp.URL, nil
}

func (c *GRPCClient) PresignMediaDownload(ctx context.Context, key string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.PresignMediaDownload(ctx, &rpc.PresignMediaDownloadRequest{Key: key})
	if err != nil {
		return "", c.mapError(err)
	}
	return resp.URL, nil
}

// QueryOrdered starts a Watch stream. Batches are received in the
// background and handed out by Next.
func (c *GRPCClient) QueryOrdered(ctx context.Context, q models.Query) (Subscription, error) {
	req := &rpc.WatchRequest{
		Collection: q.Collection,
		SortField:  q.SortField,
		Descending: q.Descending,
		PageSize:   int32(q.PageSize),
		Cursor:     q.Cursor,
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &grpcSubscription{
		cancel:  cancel,
		results: make(chan subResult),
	}
	go s.pump(subCtx, c, req)
	return s, nil
}

func (c *GRPCClient) openWatch(ctx context.Context, req *rpc.WatchRequest) (rpc.WatchClientStream, error) {
	return c.client.Watch(withAccessToken(ctx, c.currentAccessToken()), req)
}

type subResult struct {
	page *models.Page
	err  error
}

type grpcSubscription struct {
	cancel    context.CancelFunc
	results   chan subResult
	closeOnce sync.Once
}

func (s *grpcSubscription) pump(ctx context.Context, c *GRPCClient, req *rpc.WatchRequest) {
	defer close(s.results)

	stream, err := c.openWatch(ctx, req)
	refreshed := false
	first := true
	for err == nil {
		var b *rpc.WatchBatch
		b, err = stream.Recv()
		if err != nil {
			// auth is checked when the stream starts, so expiry shows up on
			// the first receive
			if first && !refreshed && isTokenExpired(err) {
				refreshed = true
				if _, rerr := c.refresh(ctx, c.currentAccessToken()); rerr != nil {
					err = rerr
					break
				}
				stream, err = c.openWatch(ctx, req)
				continue
			}
			break
		}
		first = false

		select {
		case s.results <- subResult{page: toPage(b)}:
		case <-ctx.Done():
			return
		}
	}

	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return
	}
	select {
	case s.results <- subResult{err: c.mapError(err)}:
	case <-ctx.Done():
	}
}

func (s *grpcSubscription) Next(ctx context.Context) (*models.Page, error) {
	select {
	case r, ok := <-s.results:
		if !ok {
			return nil, io.EOF
		}
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *grpcSubscription) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

func toDocument(d *rpc.Document) *models.Document {
	if d == nil {
		return nil
	}
	return &models.Document{
		Collection: d.Collection,
		ID:         d.ID,
		Payload:    d.Payload,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		Deleted:    d.Deleted,
	}
}

func toPage(b *rpc.WatchBatch) *models.Page {
	p := &models.Page{NextCursor: b.NextCursor, Live: b.Live}
	p.Documents = make([]*models.Document, 0, len(b.Documents))
	for _, d := range b.Documents {
		p.Documents = append(p.Documents, toDocument(d))
	}
	return p
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.AlreadyExists, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrConflict, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
