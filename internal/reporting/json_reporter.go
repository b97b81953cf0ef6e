// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter emits journey results as indented JSON: a single object for
// one journey, an array for comparison runs. It is thread safe.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu      sync.Mutex
	results []*schemas.JourneyResult
}

// NewJSONReporter creates a reporter that takes ownership of the writer.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: observability.GetLogger().Named("json_reporter"),
	}
}

// Write buffers one journey result.
func (r *JSONReporter) Write(result *schemas.JourneyResult) error {
	if result == nil {
		return fmt.Errorf("cannot report a nil journey result")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// Close encodes the buffered results and closes the output writer.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	var encodeErr error
	switch len(r.results) {
	case 0:
		// Nothing buffered still yields valid JSON.
		encodeErr = encoder.Encode([]*schemas.JourneyResult{})
	case 1:
		encodeErr = encoder.Encode(r.results[0])
	default:
		encodeErr = encoder.Encode(r.results)
	}

	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode journey report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON report: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Wrote JSON journey report", zap.Int("journeys", len(r.results)))
	return nil
}
