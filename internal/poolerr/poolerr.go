// Package poolerr defines the categorical failures surfaced by the pool core.
package poolerr

import "errors"

// Kind groups failure reasons into the categories callers branch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindInitialization
	KindLiquidity
	KindInvariantViolated
	KindRatioExceeded
	KindTransferFailed
	KindPriceBound
	KindMisconfiguration
	KindMath
	KindOrderRejected
)

func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindLiquidity:
		return "liquidity"
	case KindInvariantViolated:
		return "invariant_violated"
	case KindRatioExceeded:
		return "ratio_exceeded"
	case KindTransferFailed:
		return "transfer_failed"
	case KindPriceBound:
		return "price_bound"
	case KindMisconfiguration:
		return "misconfiguration"
	case KindMath:
		return "math"
	case KindOrderRejected:
		return "order_rejected"
	default:
		return "unknown"
	}
}

// Error is a single failure reason. Sentinels are compared by identity.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func newError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// KindOf returns the category of the first pool error in err's chain.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

var (
	ErrAlreadyInitialized = newError(KindInitialization, "ALREADY_INITIALIZED")
	ErrIdenticalTokens    = newError(KindInitialization, "IDENTICAL_ADDRESSES")
	ErrNotInitialized     = newError(KindInitialization, "NOT_INITIALIZED")

	ErrZeroLiquidity               = newError(KindLiquidity, "ZERO_LIQUIDITY")
	ErrInsufficientLiquidityBurned = newError(KindLiquidity, "INSUFFICIENT_LIQUIDITY_BURNED")
	ErrInsufficientLiquidity       = newError(KindLiquidity, "INSUFFICIENT_LIQUIDITY")
	ErrInsufficientOutputAmount    = newError(KindLiquidity, "INSUFFICIENT_OUTPUT_AMOUNT")
	ErrInsufficientInputAmount     = newError(KindLiquidity, "INSUFFICIENT_INPUT_AMOUNT")
	ErrOverflow                    = newError(KindLiquidity, "OVERFLOW")
	ErrUnderflow                   = newError(KindLiquidity, "UNDERFLOW")
	ErrInsufficientBalance         = newError(KindLiquidity, "INSUFFICIENT_BALANCE")
	ErrInsufficientAllowance       = newError(KindLiquidity, "INSUFFICIENT_ALLOWANCE")
	ErrSupplyOverflow              = newError(KindLiquidity, "SUPPLY_OVERFLOW")

	ErrInvariantViolated              = newError(KindInvariantViolated, "K")
	ErrSpotPriceBeforeAboveTokenRatio = newError(KindInvariantViolated, "SPOT_PRICE_BEFORE_ABOVE_TOKEN_RATIO")

	ErrTokenAmountInAboveMaxRatio  = newError(KindRatioExceeded, "TOKEN_AMOUNT_IN_ABOVE_MAX_RATIO")
	ErrTokenAmountOutAboveMaxRatio = newError(KindRatioExceeded, "TOKEN_AMOUNT_OUT_ABOVE_MAX_RATIO")

	ErrTransferFailed = newError(KindTransferFailed, "TRANSFER_FAILED")

	ErrSpotPriceAboveMaxPrice             = newError(KindPriceBound, "SPOT_PRICE_ABOVE_MAX_PRICE")
	ErrSpotPriceAfterBelowSpotPriceBefore = newError(KindPriceBound, "SPOT_PRICE_AFTER_BELOW_SPOT_PRICE_BEFORE")
	ErrTokenAmountOutBelowMinOut          = newError(KindPriceBound, "TOKEN_AMOUNT_OUT_BELOW_MIN_OUT")
	ErrTokenAmountInAboveMaxIn            = newError(KindPriceBound, "TOKEN_AMOUNT_IN_ABOVE_MAX_IN")

	ErrUnknownOracle         = newError(KindMisconfiguration, "UNKNOWN_ORACLE")
	ErrTokenNotBound         = newError(KindMisconfiguration, "TOKEN_NOT_BOUND")
	ErrTokenAlreadyBound     = newError(KindMisconfiguration, "TOKEN_ALREADY_BOUND")
	ErrTokensAboveMaximum    = newError(KindMisconfiguration, "TOKENS_ABOVE_MAXIMUM")
	ErrTokensBelowMinimum    = newError(KindMisconfiguration, "TOKENS_BELOW_MINIMUM")
	ErrWeightBelowMinimum    = newError(KindMisconfiguration, "WEIGHT_BELOW_MINIMUM")
	ErrWeightAboveMaximum    = newError(KindMisconfiguration, "WEIGHT_ABOVE_MAXIMUM")
	ErrTotalWeightAboveMax   = newError(KindMisconfiguration, "TOTAL_WEIGHT_ABOVE_MAXIMUM")
	ErrBalanceBelowMinimum   = newError(KindMisconfiguration, "BALANCE_BELOW_MINIMUM")
	ErrFeeAboveMaximum       = newError(KindMisconfiguration, "FEE_ABOVE_MAXIMUM")
	ErrPoolIsFinalized       = newError(KindMisconfiguration, "POOL_IS_FINALIZED")
	ErrPoolNotFinalized      = newError(KindMisconfiguration, "POOL_NOT_FINALIZED")
	ErrCallerIsNotController = newError(KindMisconfiguration, "CALLER_IS_NOT_CONTROLLER")
	ErrPoolDoesNotExist      = newError(KindMisconfiguration, "POOL_DOES_NOT_EXIST")
	ErrInvalidPrices         = newError(KindMisconfiguration, "INVALID_PRICES")

	ErrMath           = newError(KindMath, "MATH_ERROR")
	ErrDivisionByZero = newError(KindMath, "DIVISION_BY_ZERO")
	ErrPowBaseTooLow  = newError(KindMath, "POW_BASE_TOO_LOW")
	ErrPowBaseTooHigh = newError(KindMath, "POW_BASE_TOO_HIGH")

	ErrNotSolutionSettler   = newError(KindOrderRejected, "NOT_SOLUTION_SETTLER")
	ErrOrderNotCommitted    = newError(KindOrderRejected, "ORDER_DOES_NOT_MATCH_COMMITTED_HASH")
	ErrOrderHashMismatch    = newError(KindOrderRejected, "ORDER_DOES_NOT_MATCH_MESSAGE_HASH")
	ErrAppDataMismatch      = newError(KindOrderRejected, "APP_DATA_DOES_NOT_MATCH")
	ErrReceiverIsNotPool    = newError(KindOrderRejected, "RECEIVER_IS_NOT_POOL")
	ErrOrderValidityTooLong = newError(KindOrderRejected, "ORDER_VALIDITY_TOO_LONG")
	ErrFeeMustBeZero        = newError(KindOrderRejected, "FEE_MUST_BE_ZERO")
	ErrInvalidOperation     = newError(KindOrderRejected, "INVALID_OPERATION")
	ErrInvalidBalanceMarker = newError(KindOrderRejected, "INVALID_BALANCE_MARKER")
	ErrMalformedOrder       = newError(KindOrderRejected, "MALFORMED_ORDER")
)
