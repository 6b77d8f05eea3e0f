package sim

import "errors"

// Rejected commands return one of these sentinels and leave state unchanged.
var (
	ErrNoSuchEntity     = errors.New("no such entity")
	ErrNotRetail        = errors.New("building has no retail plot")
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrOverCreditLimit  = errors.New("issuance would exceed credit limit")
	ErrRatingTooLow     = errors.New("credit rating below issuance floor")
	ErrOverLeverage     = errors.New("debt would exceed half of market cap")
	ErrNoSuchLoan       = errors.New("no such loan")
	ErrStrikeActive     = errors.New("critical strike in progress")
	ErrNotACompany      = errors.New("entity is not a company")
)
