package escrow

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
	"github.com/louisbranch/commongood/internal/platform/errors/i18n"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/metadata"
	"github.com/louisbranch/commongood/internal/services/escrow/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus converts err into a gRPC status. Domain errors carry ErrorInfo
// and a LocalizedMessage rendered for the caller's Accept-Language.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		catalog := i18n.GetCatalog(metadata.LocaleFromContext(ctx))
		return domainErr.ToGRPCStatus(catalog.Locale(), catalog.Format(string(domainErr.Code), domainErr.Metadata))
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
