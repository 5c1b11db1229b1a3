package cart

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

func errQuantityOverflow(productID string) error {
	return fmt.Errorf("%w: quantity of %s would exceed %d", ErrInvalidArgument, productID, MaxQuantity)
}
