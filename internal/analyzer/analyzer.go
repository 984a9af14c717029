// Package analyzer wraps the external business-plan analyzer behind a
// narrow interface. The analyzer is a separate program; this package only
// spawns it and decodes the single JSON document it prints on stdout.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type Analyzer interface {
	Submit(ctx context.Context, pdfPath, businessName, contactEmail string) (*Result, error)
}

type Result struct {
	Model             string          `json:"model"`
	TotalScore        float64         `json:"total_score"`
	MaxScore          float64         `json:"max_possible_score"`
	Eligible          bool            `json:"is_eligible"`
	Confidence        *float64        `json:"confidence_score,omitempty"`
	Summary           string          `json:"summary"`
	Criteria          json.RawMessage `json:"criteria_results,omitempty"`
	Recommendations   json.RawMessage `json:"recommendations,omitempty"`
	ProcessingSeconds float64         `json:"processing_time"`
}

// Failure carries the analyzer's own diagnostics when the process exits
// nonzero.
type Failure struct {
	ExitCode int
	Stderr   string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("analyzer exited with code %d: %s", f.ExitCode, f.Stderr)
}

// CommandAnalyzer invokes the configured analyzer binary as a subprocess.
type CommandAnalyzer struct {
	Command string
	Timeout time.Duration
}

func NewCommandAnalyzer(command string, timeout time.Duration) *CommandAnalyzer {
	return &CommandAnalyzer{Command: command, Timeout: timeout}
}

func (a *CommandAnalyzer) Submit(ctx context.Context, pdfPath, businessName, contactEmail string) (*Result, error) {
	if a.Command == "" {
		return nil, fmt.Errorf("analyzer command is not configured")
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.Command,
		"--process",
		"--pdf", pdfPath,
		"--business", businessName,
		"--email", contactEmail,
		"--json",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("analyzer: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &Failure{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return nil, fmt.Errorf("analyzer: %w", err)
	}

	return DecodeResult(stdout.Bytes())
}

// DecodeResult parses the analyzer's stdout. The contract is one JSON
// document, not log lines.
func DecodeResult(raw []byte) (*Result, error) {
	var res Result
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("analyzer output is not valid JSON: %w", err)
	}
	if res.Model == "" {
		return nil, fmt.Errorf("analyzer output is missing the model field")
	}
	return &res, nil
}
