package token

import apperrors "github.com/louisbranch/commongood/internal/platform/errors"

var (
	// ErrUnauthorized indicates a mint attempted by someone other than the ledger owner.
	ErrUnauthorized = apperrors.New(apperrors.CodeUnauthorized, "only the token owner can mint")
	// ErrInvalidAddress indicates a transfer to or from the zero address.
	ErrInvalidAddress = apperrors.New(apperrors.CodeInvalidAddress, "token transfers require non-zero addresses")
	// ErrInsufficientBalance indicates the sender balance is below the transfer amount.
	ErrInsufficientBalance = apperrors.New(apperrors.CodeInsufficientBalance, "transfer amount exceeds balance")
	// ErrInsufficientAllowance indicates the spender allowance is below the transfer amount.
	ErrInsufficientAllowance = apperrors.New(apperrors.CodeInsufficientAllowance, "transfer amount exceeds allowance")
	// ErrOverflow indicates a balance or supply would exceed 256 bits.
	ErrOverflow = apperrors.New(apperrors.CodeAmountOverflow, "token amount overflow")
)
