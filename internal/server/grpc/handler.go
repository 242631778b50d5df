package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/fitsync/internal/rpc"
	"github.com/dmitrijs2005/fitsync/internal/server/broker"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
)

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	u, err := s.users.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "email", u.Email)
	return &rpc.RegisterResponse{}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {

	tokens, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.LoginResponse{Email: tokens.Email, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {

	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) GetDocument(ctx context.Context, req *rpc.GetDocumentRequest) (*rpc.GetDocumentResponse, error) {

	d, err := s.documents.Get(ctx, req.Collection, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.GetDocumentResponse{Document: toRPC(d, false)}, nil
}

func (s *GRPCServer) WriteDocument(ctx context.Context, req *rpc.WriteDocumentRequest) (*rpc.WriteDocumentResponse, error) {
	caller, ok := callerEmail(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	d, err := s.documents.Write(ctx, caller, req.Collection, req.ID, req.Payload, req.Merge)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.WriteDocumentResponse{Document: toRPC(d, false)}, nil
}

func (s *GRPCServer) DeleteDocument(ctx context.Context, req *rpc.DeleteDocumentRequest) (*rpc.DeleteDocumentResponse, error) {
	caller, ok := callerEmail(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if err := s.documents.Delete(ctx, caller, req.Collection, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.DeleteDocumentResponse{}, nil
}

// Watch sends one ordered page. Without a cursor the stream then stays open
// and forwards every change of the collection as a Live batch until the
// client goes away. The subscription is opened before the page is read so
// that no change committed in between is missed.
func (s *GRPCServer) Watch(req *rpc.WatchRequest, stream rpc.WatchServerStream) error {
	ctx := stream.Context()
	live := req.Cursor == ""

	var sub *broker.Subscription
	if live {
		sub = s.changes.Subscribe(req.Collection)
		defer sub.Close()
	}

	page, err := s.documents.Query(ctx, req.Collection, req.SortField, req.Descending, int(req.PageSize), req.Cursor)
	if err != nil {
		return s.toStatus(ctx, err)
	}

	first := &rpc.WatchBatch{Documents: make([]*rpc.Document, 0, len(page.Documents)), NextCursor: page.Next}
	for _, d := range page.Documents {
		first.Documents = append(first.Documents, toRPC(d, false))
	}
	if err := stream.Send(first); err != nil {
		return err
	}
	if !live {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-sub.Changes():
			if !ok {
				if sub.Lagged() {
					s.logger.Warn(ctx, "watch stream fell behind", "collection", req.Collection)
					return status.Error(codes.Unavailable, "watch stream fell behind, resubscribe")
				}
				return status.Error(codes.Unavailable, "server shutting down")
			}
			batch := &rpc.WatchBatch{Documents: []*rpc.Document{toRPC(c.Document, c.Deleted)}, Live: true}
			if err := stream.Send(batch); err != nil {
				return err
			}
		}
	}
}

func (s *GRPCServer) PresignMediaUpload(ctx context.Context, req *rpc.PresignMediaUploadRequest) (*rpc.PresignMediaUploadResponse, error) {
	caller, ok := callerEmail(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	key, url, err := s.media.PresignUpload(ctx, caller, req.ContentType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.PresignMediaUploadResponse{Key: key, URL: url}, nil
}

func (s *GRPCServer) PresignMediaDownload(ctx context.Context, req *rpc.PresignMediaDownloadRequest) (*rpc.PresignMediaDownloadResponse, error) {

	url, err := s.media.PresignDownload(ctx, req.Key)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.PresignMediaDownloadResponse{URL: url}, nil
}

func toRPC(d *models.Document, deleted bool) *rpc.Document {
	out := &rpc.Document{
		Collection: d.Collection,
		ID:         d.ID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		Deleted:    deleted,
	}
	if !deleted {
		out.Payload = d.Payload
	}
	return out
}
