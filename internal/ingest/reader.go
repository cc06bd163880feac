package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/model"
)

// Result summarizes one source file read.
type Result struct {
	Source  string
	Lines   []model.OrderLine
	Read    int
	Dropped int
	Invalid int
}

// ReadFile parses one CSV extract with the given mapper.
func ReadFile(ctx context.Context, path string, m Mapper) (*Result, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	result, err := Read(ctx, f, m)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return result, nil
}

// Read parses a CSV stream with the given mapper. Malformed records are
// counted as dropped and logged; they never abort the read.
func Read(ctx context.Context, r io.Reader, m Mapper) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.ErrMissingHeader
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	result := &Result{Source: m.Source()}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Read++
			result.Dropped++
			slog.Warn("Skipping malformed CSV record", "source", m.Source(), "error", err)
			continue
		}

		result.Read++
		line, ok := m.Map(Row{columns: columns, record: record})
		if !ok {
			result.Dropped++
			continue
		}
		if line.Quality == model.QualityInvalid {
			result.Invalid++
		}
		result.Lines = append(result.Lines, line)
	}

	if len(result.Lines) == 0 {
		return result, fmt.Errorf("%w: source %s", common.ErrNoUsableRows, m.Source())
	}

	slog.Info("Parsed source extract",
		"source", m.Source(),
		"rows_read", result.Read,
		"rows_kept", len(result.Lines),
		"rows_dropped", result.Dropped,
		"rows_invalid", result.Invalid)

	return result, nil
}
