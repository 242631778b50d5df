// Package grpc exposes the document services over gRPC.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/rpc"
	"github.com/dmitrijs2005/fitsync/internal/server/broker"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
	"github.com/dmitrijs2005/fitsync/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type DocumentService interface {
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	Write(ctx context.Context, caller, collection, id string, payload []byte, merge bool) (*models.Document, error)
	Delete(ctx context.Context, caller, collection, id string) error
	Query(ctx context.Context, collection, sortField string, descending bool, pageSize int, cursor string) (*services.Page, error)
}

type MediaService interface {
	PresignUpload(ctx context.Context, owner, contentType string) (string, string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Subscriber opens live change feeds for Watch.
type Subscriber interface {
	Subscribe(collection string) *broker.Subscription
}

type GRPCServer struct {
	rpc.UnimplementedDocumentServiceServer
	address   string
	users     UserService
	documents DocumentService
	media     MediaService
	changes   Subscriber
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us UserService, ds DocumentService, ms MediaService, sub Subscriber, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		documents: ds,
		media:     ms,
		changes:   sub,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	rpc.RegisterDocumentServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
