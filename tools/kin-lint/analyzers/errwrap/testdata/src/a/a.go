package a

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

func bad(id string, err error) error {
	_ = fmt.Errorf("membership %s: %v", id, err)               // want "error formatted without %w"
	return fmt.Errorf("%w: lookup failed: %s", ErrNotFound, err) // want "error formatted without %w"
}

func good(id string, err error) error {
	_ = fmt.Errorf("membership %s: %w", id, err)
	_ = fmt.Errorf("%w: membership %s", ErrNotFound, id)
	_ = fmt.Errorf("rule %q: %w: %w", id, ErrNotFound, err)
	return fmt.Errorf("no error here: %s", id)
}
