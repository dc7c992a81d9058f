package billing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
)

var ErrFeeNotFound = errors.New("fee category not found")

// Fee is the resolved tariff for a fee category.
type Fee struct {
	// Tariff amount charged when the line does not override it
	Amount decimal.Decimal
	// GFS classification code attached to the resulting line item
	GfsCode string
}

// FeeLookup resolves a fee category to its tariff. The settings layer owns
// the implementations; FeeTable is the configuration backed one.
type FeeLookup interface {
	Lookup(category string) (fee Fee, err error)
}

type FeeTable map[string]Fee

func (t FeeTable) Lookup(category string) (fee Fee, err error) {
	fee, found := t[category]
	if !found {
		known := maps.Keys(t)
		sort.Strings(known)
		return fee, fmt.Errorf("%w: %q, known categories: %v", ErrFeeNotFound, category, known)
	}
	return fee, nil
}
