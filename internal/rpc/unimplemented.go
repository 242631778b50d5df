package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnimplementedDocumentServiceServer answers every method with
// codes.Unimplemented. Embed it to satisfy DocumentServiceServer partially.
type UnimplementedDocumentServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedDocumentServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedDocumentServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedDocumentServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedDocumentServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedDocumentServiceServer) GetDocument(context.Context, *GetDocumentRequest) (*GetDocumentResponse, error) {
	return nil, unimplemented("GetDocument")
}
func (UnimplementedDocumentServiceServer) WriteDocument(context.Context, *WriteDocumentRequest) (*WriteDocumentResponse, error) {
	return nil, unimplemented("WriteDocument")
}
func (UnimplementedDocumentServiceServer) DeleteDocument(context.Context, *DeleteDocumentRequest) (*DeleteDocumentResponse, error) {
	return nil, unimplemented("DeleteDocument")
}
func (UnimplementedDocumentServiceServer) Watch(*WatchRequest, WatchServerStream) error {
	return unimplemented("Watch")
}
func (UnimplementedDocumentServiceServer) PresignMediaUpload(context.Context, *PresignMediaUploadRequest) (*PresignMediaUploadResponse, error) {
	return nil, unimplemented("PresignMediaUpload")
}
func (UnimplementedDocumentServiceServer) PresignMediaDownload(context.Context, *PresignMediaDownloadRequest) (*PresignMediaDownloadResponse, error) {
	return nil, unimplemented("PresignMediaDownload")
}
