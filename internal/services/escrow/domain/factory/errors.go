package factory

import (
	"strconv"

	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
)

var (
	// ErrUnauthorized indicates a platform setting changed by someone other than the owner.
	ErrUnauthorized = apperrors.New(apperrors.CodeUnauthorized, "only the platform owner can change settings")
	// ErrBetaTesterRequired indicates project creation by a non-tester in beta mode.
	ErrBetaTesterRequired = apperrors.New(apperrors.CodeBetaTesterRequired, "caller is not a beta tester")
	// ErrPaymentTokenNotApproved indicates a project in a token the platform does not accept.
	ErrPaymentTokenNotApproved = apperrors.New(apperrors.CodePaymentTokenNotApproved, "payment token is not approved")
	// ErrInvalidAddress indicates a missing required address.
	ErrInvalidAddress = apperrors.New(apperrors.CodeInvalidAddress, "address is required")
	// ErrInvalidPlatformCut indicates a cut above 1000 promils.
	ErrInvalidPlatformCut = apperrors.New(apperrors.CodeInvalidPlatformCut, "platform cut must not exceed 1000 promils")
	// ErrInvalidDuration indicates a negative duration setting.
	ErrInvalidDuration = apperrors.New(apperrors.CodeInvalidDuration, "duration must not be negative")
	// ErrInvalidMilestoneBounds indicates min and max milestone counts that overlap badly.
	ErrInvalidMilestoneBounds = apperrors.New(apperrors.CodeMilestoneCount, "milestone bounds are invalid")
	// ErrNotFound indicates an unknown project, vault or token.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "not found")
	// ErrAlreadyExists indicates an address that is already registered.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "already exists")
	// ErrVaultInUse indicates a reused vault that is already bound.
	ErrVaultInUse = apperrors.New(apperrors.CodeVaultInUse, "vault is already bound to a project")
)

func milestoneCountError(min, max int) error {
	return apperrors.WithMetadata(apperrors.CodeMilestoneCount, "milestone count out of range", map[string]string{
		"Min": strconv.Itoa(min),
		"Max": strconv.Itoa(max),
	})
}

func notFound(kind, addr string) error {
	return apperrors.WrapWithMetadata(apperrors.CodeNotFound, kind+" not found", map[string]string{"Address": addr}, ErrNotFound)
}
