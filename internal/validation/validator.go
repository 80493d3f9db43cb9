// Package validation shells out to the official CESOP validation module, a
// Java application that checks rendered declarations against the published
// schema and business rules.
package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cesoptools/cesopgen/pkg/utils"
)

// Runner invokes the validation module for one or more declaration files.
type Runner struct {
	// Java is the java binary to invoke, usually just "java".
	Java string
	// Jar is the path to the validation module jar.
	Jar string
	// Timeout bounds one invocation; zero means no limit.
	Timeout time.Duration
}

// Result captures one validation module run.
type Result struct {
	Stdout     string
	Stderr     string
	DurationMS int64
}

// Run validates input (a declaration file or a directory of them) and returns
// the module's output. A non-zero exit from the module is an error carrying
// whatever the module printed.
func (v *Runner) Run(ctx context.Context, input string) (*Result, error) {
	if !utils.FileExists(v.Jar) {
		return nil, fmt.Errorf("validation module jar not found: %s", v.Jar)
	}
	if !utils.FileExists(input) {
		return nil, fmt.Errorf("input file not found: %s", input)
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, v.Java, "-jar", v.Jar, input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("validation timed out after %s", v.Timeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("java runtime not found (expected `%s`), install Java or set --java", v.Java)
		}
		details := strings.TrimSpace(result.Stderr)
		if details == "" {
			details = strings.TrimSpace(result.Stdout)
		}
		return nil, fmt.Errorf("validation failed: %s", details)
	}
	return result, nil
}
