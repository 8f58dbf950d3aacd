package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a decimal price string and requires it to be strictly positive
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", ErrInvalidPrice)
	}
	return d, nil
}

// CurrentHighest returns the highest bid of a listing, treating a missing bid as zero
func CurrentHighest(highestBid *string) decimal.Decimal {
	if highestBid == nil || *highestBid == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(*highestBid)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// OutbidsHighest reports whether amount is strictly greater than the current highest bid
func OutbidsHighest(amount decimal.Decimal, highestBid *string) bool {
	return amount.GreaterThan(CurrentHighest(highestBid))
}
