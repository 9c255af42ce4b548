package binder

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// grpcRequest adapts an incoming gRPC call to Request. The full method name
// serves as URL and route; the message fills body fields through protobuf
// style getters (GetCustomerId, GetUserId).
type grpcRequest struct {
	ctx        context.Context
	md         metadata.MD
	fullMethod string
	msg        interface{}
}

func newGRPCRequest(ctx context.Context, fullMethod string, msg interface{}) *grpcRequest {
	md, _ := metadata.FromIncomingContext(ctx)
	return &grpcRequest{ctx: ctx, md: md, fullMethod: fullMethod, msg: msg}
}

func (g *grpcRequest) Header(name string) string {
	values := g.md.Get(strings.ToLower(name))
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (g *grpcRequest) OriginalURL() string { return g.fullMethod }

func (g *grpcRequest) URL() string { return g.fullMethod }

// Method is always POST: every gRPC call is an HTTP/2 POST.
func (g *grpcRequest) Method() string { return "POST" }

func (g *grpcRequest) ClientIP() string {
	p, ok := peer.FromContext(g.ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (g *grpcRequest) Route() (string, string, bool) {
	return "", g.fullMethod, g.fullMethod != ""
}

// Query reads metadata: gRPC has no query string, so clients send the
// customer id parameters (custid, userid, ...) as metadata keys.
func (g *grpcRequest) Query(name string) string { return g.Header(name) }

func (g *grpcRequest) BodyField(name string) string {
	switch name {
	case "customer_id", "customerId":
		if m, ok := g.msg.(interface{ GetCustomerId() string }); ok {
			return m.GetCustomerId()
		}
	case "user_id", "userId":
		if m, ok := g.msg.(interface{ GetUserId() string }); ok {
			return m.GetUserId()
		}
	}
	return ""
}

// UnaryServerInterceptor binds every unary call to a new scope.
func (b *Binder) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		var resp interface{}
		err := b.Bind(ctx, newGRPCRequest(ctx, info.FullMethod, req), func(ctx context.Context) error {
			var err error
			resp, err = handler(ctx, req)
			return err
		})
		return resp, err
	}
}

// StreamServerInterceptor binds every stream to a new scope.
func (b *Binder) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		return b.Bind(ss.Context(), newGRPCRequest(ss.Context(), info.FullMethod, nil), func(ctx context.Context) error {
			return handler(srv, &boundServerStream{ServerStream: ss, ctx: ctx})
		})
	}
}

// boundServerStream wraps grpc.ServerStream to carry the bound context.
type boundServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *boundServerStream) Context() context.Context {
	return s.ctx
}
