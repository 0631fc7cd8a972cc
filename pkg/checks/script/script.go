// Package script is a checking engine that runs executables following the
// SCE (script check engine) protocol.
//
// The href is a command line: the first word names an executable relative
// to the content directory and the remaining words are its arguments. Exported
// values reach the script as environment variables:
//
//	XCCDF_VALUE_<name>     bound literal
//	XCCDF_TYPE_<name>      number, string or boolean
//	XCCDF_OPERATOR_<name>  comparison operator
//
// The exit status reports the outcome. XCCDF_RESULT_PASS and the other
// XCCDF_RESULT_* variables carry the codes so scripts can use them by name.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
)

// System is the check system URI handled by this engine.
const System = "http://open-scap.org/page/SCE"

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 30 * time.Second

var (
	// ErrEmptyCommand indicates an href without a command.
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnexpectedExit indicates an exit status outside the protocol.
	ErrUnexpectedExit = errors.New("unexpected exit status")

	// ErrTimeout indicates the script exceeded its time limit.
	ErrTimeout = errors.New("script timed out")
)

// exitCodes maps protocol exit statuses to outcomes.
var exitCodes = map[int]outcome.Outcome{
	101: outcome.Pass,
	102: outcome.Fail,
	103: outcome.Error,
	104: outcome.Unknown,
	105: outcome.NotApplicable,
	106: outcome.NotChecked,
	107: outcome.NotSelected,
	108: outcome.Informational,
	109: outcome.Fixed,
}

// essentialEnv is inherited from the caller's environment.
var essentialEnv = []string{"PATH", "HOME", "USER", "LANG", "TMPDIR"}

// Config configures an Engine.
type Config struct {
	// ContentDir resolves relative script paths and is the working
	// directory of every run.
	ContentDir string

	// Timeout bounds each run. Zero means DefaultTimeout.
	Timeout time.Duration

	// Env adds fixed KEY=VALUE entries.
	Env []string

	// BaseEnv is the environment essential variables are taken from,
	// usually os.Environ().
	BaseEnv []string
}

// Engine runs SCE scripts.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// Run is the captured output of one script execution.
type Run struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// New creates an engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseEnv == nil {
		cfg.BaseEnv = os.Environ()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With("component", "check-script"),
	}
}

// Evaluate runs the script named by ref.Href.
func (e *Engine) Evaluate(ctx context.Context, ref policy.CheckRef, cc *policy.CheckContext) (outcome.Outcome, error) {
	run, err := e.Exec(ctx, ref.Href, cc)
	if err != nil {
		return outcome.Error, err
	}
	o, ok := exitCodes[run.ExitCode]
	if !ok {
		return outcome.Error, fmt.Errorf("%w %d from %q: %s", ErrUnexpectedExit, run.ExitCode, ref.Href, strings.TrimSpace(run.Stderr))
	}
	return o, nil
}

// Exec runs the command line in href and captures its output. A non-zero
// exit status is not an error.
func (e *Engine) Exec(ctx context.Context, href string, cc *policy.CheckContext) (*Run, error) {
	args, err := shellwords.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", href, err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	path, err := checks.ContentPath(e.cfg.ContentDir, args[0])
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	//nolint:gosec // G204: scripts come from trusted benchmark content.
	cmd := exec.CommandContext(ctx, path, args[1:]...)
	cmd.Dir = e.cfg.ContentDir
	cmd.Env = e.environ(cc)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	run := &Run{
		Command:  append([]string{path}, args[1:]...),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		return run, fmt.Errorf("%w after %v: %s", ErrTimeout, e.cfg.Timeout, href)
	}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		run.ExitCode = exitErr.ExitCode()
	case err != nil:
		return run, fmt.Errorf("run %s: %w", path, err)
	}

	e.logger.Debug("script finished",
		"rule_id", ruleID(cc),
		"command", href,
		"exit_code", run.ExitCode,
		"duration", run.Duration,
	)
	return run, nil
}

func (e *Engine) environ(cc *policy.CheckContext) []string {
	env := make(map[string]string)
	for _, kv := range e.cfg.BaseEnv {
		if k, v, ok := strings.Cut(kv, "="); ok && slices.Contains(essentialEnv, k) {
			env[k] = v
		}
	}
	for code, o := range exitCodes {
		env["XCCDF_RESULT_"+resultName(o)] = fmt.Sprint(code)
	}
	for _, kv := range e.cfg.Env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	if cc != nil {
		for _, vb := range cc.Values {
			env["XCCDF_VALUE_"+vb.Name()] = vb.Value()
			env["XCCDF_TYPE_"+vb.Name()] = strings.ToUpper(string(vb.Type()))
			env["XCCDF_OPERATOR_"+vb.Name()] = operatorName(string(vb.Operator()))
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// resultName returns the protocol spelling, e.g. NOT_APPLICABLE.
func resultName(o outcome.Outcome) string {
	switch o {
	case outcome.NotApplicable:
		return "NOT_APPLICABLE"
	case outcome.NotChecked:
		return "NOT_CHECKED"
	case outcome.NotSelected:
		return "NOT_SELECTED"
	default:
		return strings.ToUpper(o.String())
	}
}

// operatorName returns the protocol spelling, e.g. GREATER_THAN.
func operatorName(op string) string {
	return strings.ToUpper(strings.ReplaceAll(op, "-", "_"))
}

func ruleID(cc *policy.CheckContext) string {
	if cc == nil {
		return ""
	}
	return cc.RuleID
}
