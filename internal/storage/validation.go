// Package storage provides the warehouse persistence layer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meridianbi/meridian/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidLine    = errors.New("invalid order line")
	ErrInvalidRun     = errors.New("invalid pipeline run")
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateOrderLines validates a slice of order lines before persistence.
func validateOrderLines(lines []model.OrderLine) error {
	if lines == nil {
		return fmt.Errorf("%w: lines", ErrNilParameter)
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: lines", ErrEmptySlice)
	}
	for i := range lines {
		if err := validateOrderLine(&lines[i]); err != nil {
			return fmt.Errorf("order line at index %d: %w", i, err)
		}
	}
	return nil
}

func validateOrderLine(line *model.OrderLine) error {
	if line.OrderID == "" {
		return fmt.Errorf("%w: missing order id", ErrInvalidLine)
	}
	if line.SKU == "" {
		return fmt.Errorf("%w: missing sku", ErrInvalidLine)
	}
	if line.CustomerKey == "" {
		return fmt.Errorf("%w: missing customer key", ErrInvalidLine)
	}
	if line.ContentHash == "" {
		return fmt.Errorf("%w: missing content hash", ErrInvalidLine)
	}
	if line.Amount < 0 {
		return fmt.Errorf("%w: order %s", ErrNegativeAmount, line.OrderID)
	}
	switch line.Quality {
	case model.QualityValid, model.QualityInvalid:
	default:
		return fmt.Errorf("%w: unknown quality flag %q", ErrInvalidLine, line.Quality)
	}
	return nil
}

func validateRun(run *model.PipelineRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.ID == "" {
		return fmt.Errorf("%w: missing run id", ErrInvalidRun)
	}
	if run.Status == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidRun)
	}
	return nil
}
