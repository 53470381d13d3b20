package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"txrmwatch/internal/logging"
)

var commandContext = exec.CommandContext

// Fields is the extracted metadata, field name to rendered value.
type Fields map[string]string

// Extractor produces metadata for a settled scan file. Implementations
// must honor ctx cancellation.
type Extractor interface {
	ExtractMetadata(ctx context.Context, path string) (Fields, error)
}

// ErrNoFields is returned when extraction succeeds mechanically but
// yields an empty field set.
var ErrNoFields = errors.New("extractor: no metadata fields in output")

// PathPlaceholder in a configured argument is replaced by the scan file
// path. When no argument carries it, the path is appended last.
const PathPlaceholder = "{path}"

// Command runs a configured external tool that prints a JSON object of
// metadata fields on stdout.
type Command struct {
	command string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommand builds a command extractor. timeout bounds each invocation;
// zero means no per-invocation bound beyond the caller's context.
func NewCommand(command string, args []string, timeout time.Duration, logger *slog.Logger) *Command {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Command{
		command: command,
		args:    append([]string(nil), args...),
		timeout: timeout,
		logger:  logging.WithComponent(logger, "extractor"),
	}
}

// ExtractMetadata invokes the tool and parses its stdout. A non-zero
// exit, timeout, unparsable output, or empty field set is an error.
func (c *Command) ExtractMetadata(ctx context.Context, path string) (Fields, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.buildArgs(path)
	cmd := commandContext(ctx, c.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extractor timed out after %s: %w", elapsed.Round(time.Second), ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("extractor %s failed: %s", c.command, detail)
	}

	fields, err := ParseFields(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("metadata extracted",
		logging.String(logging.FieldPath, path),
		logging.Int(logging.FieldCount, len(fields)),
		logging.Duration(logging.FieldDuration, elapsed))
	return fields, nil
}

func (c *Command) buildArgs(path string) []string {
	args := make([]string, 0, len(c.args)+1)
	substituted := false
	for _, arg := range c.args {
		if strings.Contains(arg, PathPlaceholder) {
			arg = strings.ReplaceAll(arg, PathPlaceholder, path)
			substituted = true
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// ParseFields decodes a JSON object of metadata into Fields. Values of any
// scalar or composite type are rendered to strings; numbers keep their
// source precision.
func ParseFields(data []byte) (Fields, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoFields
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("extractor output is not a JSON object: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoFields
	}

	fields := make(Fields, len(raw))
	for key, value := range raw {
		fields[key] = renderValue(value)
	}
	return fields, nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, renderValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
