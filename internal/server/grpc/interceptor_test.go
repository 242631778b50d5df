package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/rpc"
	"github.com/dmitrijs2005/fitsync/internal/server/auth"
)

const testSecret = "secret"

func newTestServer() *GRPCServer {
	return NewGRPCServer("", logging.Nop(), nil, nil, nil, nil, testSecret)
}

func tokenFor(t *testing.T, email string, validity time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken("u1", email, []byte(testSecret), validity)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func withToken(ctx context.Context, tok string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(common.AccessTokenHeaderName, tok))
}

func TestInterceptor_PublicMethodSkipsAuth(t *testing.T) {
	s := newTestServer()

	info := &grpc.UnaryServerInfo{FullMethod: rpc.LoginMethod}
	handlerCalled := false
	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled || resp != "ok" {
		t.Fatalf("handler not called properly: called=%v resp=%v", handlerCalled, resp)
	}
}

func TestInterceptor_Rejections(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: rpc.WriteDocumentMethod}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	tests := []struct {
		name    string
		ctx     context.Context
		wantMsg string
	}{
		{name: "missing token", ctx: context.Background(), wantMsg: "missing token"},
		{name: "expired token", ctx: withToken(context.Background(), tokenFor(t, "ann@example.com", -time.Minute)), wantMsg: common.ErrTokenExpired.Error()},
		{name: "garbage token", ctx: withToken(context.Background(), "not-a-jwt"), wantMsg: common.ErrInvalidToken.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.accessTokenInterceptor(tt.ctx, nil, info, h)
			st, ok := status.FromError(err)
			if !ok || st.Code() != codes.Unauthenticated {
				t.Fatalf("expected Unauthenticated, got %v", err)
			}
			if st.Message() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", st.Message(), tt.wantMsg)
			}
		})
	}
}

func TestInterceptor_ValidTokenSetsCaller(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: rpc.WriteDocumentMethod}

	var got string
	h := func(ctx context.Context, req any) (any, error) {
		got, _ = callerEmail(ctx)
		return nil, nil
	}

	if _, err := s.accessTokenInterceptor(withToken(context.Background(), tokenFor(t, "ann@example.com", time.Minute)), nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ann@example.com" {
		t.Fatalf("caller = %q", got)
	}
}

type ctxStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (c *ctxStream) Context() context.Context { return c.ctx }

func TestStreamInterceptor(t *testing.T) {
	s := newTestServer()
	info := &grpc.StreamServerInfo{FullMethod: rpc.WatchMethod, IsServerStream: true}

	err := s.streamAccessTokenInterceptor(nil, &ctxStream{ctx: context.Background()}, info, func(any, grpc.ServerStream) error {
		t.Fatal("handler should not be called")
		return nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	var got string
	ss := &ctxStream{ctx: withToken(context.Background(), tokenFor(t, "bob@example.com", time.Minute))}
	err = s.streamAccessTokenInterceptor(nil, ss, info, func(_ any, stream grpc.ServerStream) error {
		got, _ = callerEmail(stream.Context())
		return nil
	})
	if err != nil || got != "bob@example.com" {
		t.Fatalf("stream caller = %q, err = %v", got, err)
	}
}
