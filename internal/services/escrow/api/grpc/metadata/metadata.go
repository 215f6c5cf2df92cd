// Package metadata defines the request headers the escrow service reads:
// a signed caller token, a correlation ID and the caller's preferred locale.
package metadata

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
	"github.com/louisbranch/commongood/internal/platform/errors/i18n"
	"github.com/louisbranch/commongood/internal/platform/id"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthorizationHeader carries the caller token as a bearer credential.
const AuthorizationHeader = "authorization"

const bearerPrefix = "Bearer "

// RequestIDHeader is the gRPC metadata key for request correlation IDs.
const RequestIDHeader = "x-commongood-request-id"

// LocaleHeader selects the catalog used for localized error details.
const LocaleHeader = "accept-language"

type contextKey string

const (
	requestIDContextKey contextKey = "commongood-request-id"
	callerContextKey    contextKey = "commongood-caller"
)

// CallerVerifier resolves a caller token to the wallet it was issued for.
type CallerVerifier interface {
	Verify(token string) (account.Address, error)
}

// RequestIDFromContext returns the request ID stored by the interceptor.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// CallerFromContext returns the caller verified by the interceptor, or the
// zero address for anonymous calls.
func CallerFromContext(ctx context.Context) account.Address {
	if ctx == nil {
		return account.Zero
	}
	caller, _ := ctx.Value(callerContextKey).(account.Address)
	return caller
}

// WithCaller stores a verified caller in context.
func WithCaller(ctx context.Context, caller account.Address) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerTokenFromContext returns the bearer token from incoming metadata.
func CallerTokenFromContext(ctx context.Context) string {
	value := valueFromIncomingContext(ctx, AuthorizationHeader)
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(value[len(bearerPrefix):])
}

// LocaleFromContext returns the Accept-Language header from incoming metadata.
func LocaleFromContext(ctx context.Context) string {
	return valueFromIncomingContext(ctx, LocaleHeader)
}

// WithCallerToken attaches a caller token to outgoing client metadata.
func WithCallerToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return metadata.AppendToOutgoingContext(ctx, AuthorizationHeader, bearerPrefix+token)
}

// WithLocale attaches the Accept-Language header to outgoing client metadata.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return metadata.AppendToOutgoingContext(ctx, LocaleHeader, locale)
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
func FirstMetadataValue(md metadata.MD, key string) string {
	if len(md) == 0 {
		return ""
	}
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

// UnaryServerInterceptor guarantees every unary call carries a request ID,
// echoes it in the response headers, verifies the caller token when one is
// sent and tags the active span with both.
func UnaryServerInterceptor(idGenerator func() (string, error), verifier CallerVerifier) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, requestID, err := ensureRequestID(ctx, idGenerator)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}

		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("commongood.request_id", requestID))
		ctx, err = authenticate(ctx, verifier)
		if err != nil {
			return nil, err
		}
		if caller := CallerFromContext(ctx); !caller.IsZero() {
			span.SetAttributes(attribute.String("commongood.caller", caller.String()))
		}
		return handler(ctx, req)
	}
}

// authenticate stores the caller named by a valid token. Calls without a
// token stay anonymous.
func authenticate(ctx context.Context, verifier CallerVerifier) (context.Context, error) {
	token := CallerTokenFromContext(ctx)
	if token == "" {
		if valueFromIncomingContext(ctx, AuthorizationHeader) != "" {
			return nil, status.Error(codes.Unauthenticated, "authorization must use the Bearer scheme")
		}
		return ctx, nil
	}
	if verifier == nil {
		return nil, status.Error(codes.Unauthenticated, "caller tokens are not accepted")
	}
	caller, err := verifier.Verify(token)
	if err != nil {
		return nil, authStatus(ctx, err)
	}
	return WithCaller(ctx, caller), nil
}

func authStatus(ctx context.Context, err error) error {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		catalog := i18n.GetCatalog(LocaleFromContext(ctx))
		return domainErr.ToGRPCStatus(catalog.Locale(), catalog.Format(string(domainErr.Code), domainErr.Metadata))
	}
	return status.Error(codes.Unauthenticated, err.Error())
}

// ensureRequestID reuses the inbound request ID or generates one.
func ensureRequestID(ctx context.Context, idGenerator func() (string, error)) (context.Context, string, error) {
	requestID := valueFromIncomingContext(ctx, RequestIDHeader)
	if requestID == "" {
		generated, err := idGenerator()
		if err != nil {
			return nil, "", err
		}
		requestID = generated
	}
	return WithRequestID(ctx, requestID), requestID, nil
}

func valueFromIncomingContext(ctx context.Context, header string) string {
	if ctx == nil {
		return ""
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, header)
}
