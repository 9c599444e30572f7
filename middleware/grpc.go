package middleware

import (
	"context"

	"github.com/MrEthical07/tokenauth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// MetadataKey is the incoming metadata key holding "Bearer <token>".
const MetadataKey = "authorization"

// MethodFilter reports whether a full gRPC method name requires a token.
// A nil filter protects every method.
type MethodFilter func(fullMethod string) bool

// UnaryServerInterceptor validates the bearer token of unary calls that
// match filter and stores the result in the handler context.
func UnaryServerInterceptor(v AccessValidator, filter MethodFilter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if filter != nil && !filter(info.FullMethod) {
			return handler(ctx, req)
		}
		res, err := authenticateGRPC(ctx, v)
		if err != nil {
			return nil, err
		}
		return handler(tokenauth.WithAuthResult(ctx, res), req)
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
func StreamServerInterceptor(v AccessValidator, filter MethodFilter) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if filter != nil && !filter(info.FullMethod) {
			return handler(srv, ss)
		}
		res, err := authenticateGRPC(ss.Context(), v)
		if err != nil {
			return err
		}
		return handler(srv, &authStream{ServerStream: ss, ctx: tokenauth.WithAuthResult(ss.Context(), res)})
	}
}

type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context { return s.ctx }

func authenticateGRPC(ctx context.Context, v AccessValidator) (*tokenauth.AuthResult, error) {
	if v == nil {
		return nil, statusFor(tokenauth.ErrEngineNotReady)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(MetadataKey); len(values) > 0 {
			token, _ = bearerToken(values[0])
		}
	}
	if token == "" {
		return nil, statusFor(tokenauth.ErrMissingToken)
	}

	res, err := v.ValidateAccess(ctx, token)
	if err != nil {
		return nil, statusFor(err)
	}
	return res, nil
}

func statusFor(err error) error {
	code := tokenauth.CodeOf(err)
	if code == tokenauth.CodeInternal {
		return status.Error(codes.Internal, code.Message())
	}
	return status.Error(codes.Unauthenticated, string(code))
}
