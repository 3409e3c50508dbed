// Package sandbox provides the blocking compute-execution capability the
// computation engine depends on (spec §4.8 prerequisites: "a sandbox
// capability with a blocking execute(method, params) interface; presence
// controls which stages run").
//
// No example repo in the pack ships a Python sandbox or an SDK for one —
// this is the one component of the module built directly on the standard
// library (os/exec + context deadline), justified in DESIGN.md. Its shape
// (narrow capability interface, presence-gated callers) is grounded on the
// teacher's tools.Tool/ToolExecutor interfaces (tools/registry.go).
package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// figureLinePrefix is the convention the chart-code prompt enforces on
// generated code: emit each PNG as one base64 line prefixed this way so the
// sandbox can split figures out of ordinary stdout.
const figureLinePrefix = "FIGURE:"

// ExecuteResult is the result of running one piece of generated code.
type ExecuteResult struct {
	Stdout        string
	Stderr        string
	ReturnValue   string
	ExecutionTime time.Duration
	Figures       [][]byte // raw PNG bytes, one per figure the code produced
}

// Service is the narrow blocking-execute capability. nil means "no sandbox
// available" — callers gate chart execution on this (spec §4.8).
type Service interface {
	Execute(ctx context.Context, code string, timeout time.Duration) (ExecuteResult, error)
}

// ProcessService runs generated Python via a local interpreter subprocess.
// It does not itself enforce "no network / no filesystem" — those
// constraints are prompt rules on the generated code (spec §4.8 point 4);
// a hardened deployment would run this inside a container or gVisor/Firecracker
// boundary, which is out of scope for this module.
type ProcessService struct {
	pythonPath string
}

// NewProcessService builds a sandbox service that shells out to the given
// Python interpreter (e.g. "python3").
func NewProcessService(pythonPath string) *ProcessService {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return &ProcessService{pythonPath: pythonPath}
}

// Execute runs code as a standalone script under a hard timeout and splits
// figures out of its stdout via splitFigures: each line prefixed "FIGURE:"
// that holds valid base64 becomes one entry of Figures (the convention the
// chart-code prompt asks generated code to follow).
func (s *ProcessService) Execute(ctx context.Context, code string, timeout time.Duration) (ExecuteResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(execCtx, s.pythonPath, "-c", code)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if execCtx.Err() == context.DeadlineExceeded {
		return ExecuteResult{}, fmt.Errorf("sandbox: resource_limit_error: execution exceeded %s", timeout)
	}
	if err != nil {
		return ExecuteResult{Stdout: stdout.String(), Stderr: stderr.String(), ExecutionTime: elapsed}, fmt.Errorf("sandbox: business_error: %s", stderr.String())
	}

	text, figures := splitFigures(stdout.String())
	return ExecuteResult{
		Stdout:        text,
		ExecutionTime: elapsed,
		Figures:       figures,
	}, nil
}

// splitFigures pulls "FIGURE:<base64>" lines out of stdout, decoding each
// into raw PNG bytes, and returns the remaining lines as plain stdout. A
// line that fails to decode is left in the stdout text rather than dropped,
// so malformed output is still visible to the caller.
func splitFigures(stdout string) (string, [][]byte) {
	lines := strings.Split(stdout, "\n")
	kept := lines[:0:0]
	var figures [][]byte
	for _, line := range lines {
		payload, ok := strings.CutPrefix(line, figureLinePrefix)
		if !ok {
			kept = append(kept, line)
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			kept = append(kept, line)
			continue
		}
		figures = append(figures, raw)
	}
	return strings.Join(kept, "\n"), figures
}
