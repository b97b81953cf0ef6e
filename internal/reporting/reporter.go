// internal/reporting/reporter.go

// Package reporting renders finished journeys for humans and machines.
// Reporters buffer results as journeys finish and emit the report on Close,
// so one reporter can collect a whole comparison run.
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// Reporter consumes finished journeys and renders them when closed.
type Reporter interface {
	// Write buffers a single journey result.
	Write(result *schemas.JourneyResult) error
	// Close renders the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format. An empty or "stdout" output
// path writes to standard output; anything else creates a file.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	cleanup := func() {
		if !isStdOut {
			writer.Close()
		}
	}

	switch strings.ToLower(format) {
	case "json":
		return NewJSONReporter(writer), nil
	case "markdown", "md":
		return NewMarkdownReporter(writer), nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
