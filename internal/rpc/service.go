package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "fitsync.v1.DocumentService"

// Full method names.
const (
	PingMethod                 = "/" + ServiceName + "/Ping"
	RegisterMethod             = "/" + ServiceName + "/Register"
	LoginMethod                = "/" + ServiceName + "/Login"
	RefreshTokenMethod         = "/" + ServiceName + "/RefreshToken"
	GetDocumentMethod          = "/" + ServiceName + "/GetDocument"
	WriteDocumentMethod        = "/" + ServiceName + "/WriteDocument"
	DeleteDocumentMethod       = "/" + ServiceName + "/DeleteDocument"
	WatchMethod                = "/" + ServiceName + "/Watch"
	PresignMediaUploadMethod   = "/" + ServiceName + "/PresignMediaUpload"
	PresignMediaDownloadMethod = "/" + ServiceName + "/PresignMediaDownload"
)

// DocumentServiceServer is implemented by the server.
type DocumentServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	GetDocument(context.Context, *GetDocumentRequest) (*GetDocumentResponse, error)
	WriteDocument(context.Context, *WriteDocumentRequest) (*WriteDocumentResponse, error)
	DeleteDocument(context.Context, *DeleteDocumentRequest) (*DeleteDocumentResponse, error)
	Watch(*WatchRequest, WatchServerStream) error
	PresignMediaUpload(context.Context, *PresignMediaUploadRequest) (*PresignMediaUploadResponse, error)
	PresignMediaDownload(context.Context, *PresignMediaDownloadRequest) (*PresignMediaDownloadResponse, error)
}

// WatchServerStream is the server side of Watch.
type WatchServerStream interface {
	Send(*WatchBatch) error
	grpc.ServerStream
}

type watchServerStream struct {
	grpc.ServerStream
}

func (s *watchServerStream) Send(b *WatchBatch) error { return s.ServerStream.SendMsg(b) }

func unaryHandler[Req any, Resp any](method string, call func(DocumentServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentServiceServer).Watch(in, &watchServerStream{stream})
}

// ServiceDesc describes DocumentService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(PingMethod, DocumentServiceServer.Ping)},
		{MethodName: "Register", Handler: unaryHandler(RegisterMethod, DocumentServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(LoginMethod, DocumentServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(RefreshTokenMethod, DocumentServiceServer.RefreshToken)},
		{MethodName: "GetDocument", Handler: unaryHandler(GetDocumentMethod, DocumentServiceServer.GetDocument)},
		{MethodName: "WriteDocument", Handler: unaryHandler(WriteDocumentMethod, DocumentServiceServer.WriteDocument)},
		{MethodName: "DeleteDocument", Handler: unaryHandler(DeleteDocumentMethod, DocumentServiceServer.DeleteDocument)},
		{MethodName: "PresignMediaUpload", Handler: unaryHandler(PresignMediaUploadMethod, DocumentServiceServer.PresignMediaUpload)},
		{MethodName: "PresignMediaDownload", Handler: unaryHandler(PresignMediaDownloadMethod, DocumentServiceServer.PresignMediaDownload)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "fitsync/v1/document_service",
}

// RegisterDocumentServiceServer registers srv on s.
func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// DocumentServiceClient is the client API for DocumentService.
type DocumentServiceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*GetDocumentResponse, error)
	WriteDocument(ctx context.Context, in *WriteDocumentRequest, opts ...grpc.CallOption) (*WriteDocumentResponse, error)
	DeleteDocument(ctx context.Context, in *DeleteDocumentRequest, opts ...grpc.CallOption) (*DeleteDocumentResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClientStream, error)
	PresignMediaUpload(ctx context.Context, in *PresignMediaUploadRequest, opts ...grpc.CallOption) (*PresignMediaUploadResponse, error)
	PresignMediaDownload(ctx context.Context, in *PresignMediaDownloadRequest, opts ...grpc.CallOption) (*PresignMediaDownloadResponse, error)
}

// WatchClientStream is the client side of Watch.
type WatchClientStream interface {
	Recv() (*WatchBatch, error)
	grpc.ClientStream
}

type watchClientStream struct {
	grpc.ClientStream
}

func (s *watchClientStream) Recv() (*WatchBatch, error) {
	m := new(WatchBatch)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type documentServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentServiceClient(cc grpc.ClientConnInterface) DocumentServiceClient {
	return &documentServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, PingMethod, in, opts)
}

func (c *documentServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, RegisterMethod, in, opts)
}

func (c *documentServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, LoginMethod, in, opts)
}

func (c *documentServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, RefreshTokenMethod, in, opts)
}

func (c *documentServiceClient) GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*GetDocumentResponse, error) {
	return invoke[GetDocumentResponse](ctx, c.cc, GetDocumentMethod, in, opts)
}

func (c *documentServiceClient) WriteDocument(ctx context.Context, in *WriteDocumentRequest, opts ...grpc.CallOption) (*WriteDocumentResponse, error) {
	return invoke[WriteDocumentResponse](ctx, c.cc, WriteDocumentMethod, in, opts)
}

func (c *documentServiceClient) DeleteDocument(ctx context.Context, in *DeleteDocumentRequest, opts ...grpc.CallOption) (*DeleteDocumentResponse, error) {
	return invoke[DeleteDocumentResponse](ctx, c.cc, DeleteDocumentMethod, in, opts)
}

func (c *documentServiceClient) PresignMediaUpload(ctx context.Context, in *PresignMediaUploadRequest, opts ...grpc.CallOption) (*PresignMediaUploadResponse, error) {
	return invoke[PresignMediaUploadResponse](ctx, c.cc, PresignMediaUploadMethod, in, opts)
}

func (c *documentServiceClient) PresignMediaDownload(ctx context.Context, in *PresignMediaDownloadRequest, opts ...grpc.CallOption) (*PresignMediaDownloadResponse, error) {
	return invoke[PresignMediaDownloadResponse](ctx, c.cc, PresignMediaDownloadMethod, in, opts)
}

func (c *documentServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &watchClientStream{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
