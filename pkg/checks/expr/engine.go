package expr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"gopkg.in/yaml.v3"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
)

// System is the check system URI handled by this engine.
const System = "urn:mercator:check:cel"

var (
	// ErrCompile indicates an expression failed to compile.
	ErrCompile = errors.New("compile expression")

	// ErrResultType indicates an expression yielded neither a boolean nor an
	// outcome name.
	ErrResultType = errors.New("unsupported expression result")
)

// celMutex serializes environment creation and compilation.
var celMutex sync.Mutex

// Config configures an Engine.
type Config struct {
	// ContentDir resolves relative hrefs.
	ContentDir string

	// Root prefixes every path the file functions touch, for scanning a
	// mounted image.
	Root string

	// Getenv overrides os.Getenv.
	Getenv func(string) string
}

// Engine evaluates CEL content documents.
type Engine struct {
	cfg    Config
	env    *cel.Env
	docs   *checks.DocumentCache[*document]
	logger *slog.Logger
}

type document struct {
	path   string
	checks []*compiled
}

type compiled struct {
	name       string
	program    cel.Program
	applicable cel.Program
}

type documentYAML struct {
	Checks []struct {
		Name       string `yaml:"name"`
		Expr       string `yaml:"expr"`
		Applicable string `yaml:"applicable"`
	} `yaml:"checks"`
}

// New creates an engine.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}

	celMutex.Lock()
	env, err := cel.NewEnv(cel.Lib(&lib{root: cfg.Root, getenv: cfg.Getenv}))
	celMutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		env:    env,
		logger: logger.With("component", "check-cel"),
	}
	e.docs = checks.NewDocumentCache(e.parse)
	return e, nil
}

func (e *Engine) compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, issues.Err())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}
	return program, nil
}

func (e *Engine) parse(path string, data []byte) (*document, error) {
	var raw documentYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	doc := &document{path: path}
	for i, c := range raw.Checks {
		if c.Name == "" {
			return nil, fmt.Errorf("%s: check %d has no name", path, i)
		}
		prg, err := e.compile(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: check %q: %w", path, c.Name, err)
		}
		cc := &compiled{name: c.Name, program: prg}
		if c.Applicable != "" {
			if cc.applicable, err = e.compile(c.Applicable); err != nil {
				return nil, fmt.Errorf("%s: check %q applicable: %w", path, c.Name, err)
			}
		}
		doc.checks = append(doc.checks, cc)
	}
	e.logger.Debug("content compiled", "path", path, "checks", len(doc.checks))
	return doc, nil
}

func (e *Engine) load(href string) (*document, error) {
	path, err := checks.ContentPath(e.cfg.ContentDir, href)
	if err != nil {
		return nil, err
	}
	return e.docs.Get(path)
}

// Evaluate runs the named check of the referenced document. An empty name
// selects the document's only check. A name the document does not define
// yields notchecked.
func (e *Engine) Evaluate(ctx context.Context, ref policy.CheckRef, cc *policy.CheckContext) (outcome.Outcome, error) {
	doc, err := e.load(ref.Href)
	if err != nil {
		return outcome.Error, err
	}

	c := doc.find(ref.Name)
	if c == nil {
		return outcome.NotChecked, nil
	}

	vars := map[string]any{
		"values": cc.ValueMap(),
		"rule":   cc.RuleID,
		"policy": cc.PolicyID,
	}

	if c.applicable != nil {
		ok, err := evalBool(ctx, c.applicable, vars)
		if err != nil {
			return outcome.Error, fmt.Errorf("check %q applicable: %w", c.name, err)
		}
		if !ok {
			return outcome.NotApplicable, nil
		}
	}

	out, _, err := c.program.ContextEval(ctx, vars)
	if err != nil {
		return outcome.Error, fmt.Errorf("check %q: %w", c.name, err)
	}
	return toOutcome(out)
}

// NamesForHref lists the checks defined by a document.
func (e *Engine) NamesForHref(_ context.Context, href string) ([]string, error) {
	doc, err := e.load(href)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(doc.checks))
	for i, c := range doc.checks {
		names[i] = c.name
	}
	return names, nil
}

// Invalidate drops compiled documents so changed content is recompiled.
func (e *Engine) Invalidate() {
	e.docs.Invalidate()
}

func (d *document) find(name string) *compiled {
	if name == "" {
		if len(d.checks) == 1 {
			return d.checks[0]
		}
		return nil
	}
	for _, c := range d.checks {
		if c.name == name {
			return c
		}
	}
	return nil
}

func evalBool(ctx context.Context, prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrResultType, out.Type())
	}
	return bool(b), nil
}

func toOutcome(out ref.Val) (outcome.Outcome, error) {
	switch v := out.(type) {
	case types.Bool:
		if v {
			return outcome.Pass, nil
		}
		return outcome.Fail, nil
	case types.String:
		o, err := outcome.Parse(string(v))
		if err != nil {
			return outcome.Error, fmt.Errorf("%w: %w", ErrResultType, err)
		}
		return o, nil
	default:
		return outcome.Error, fmt.Errorf("%w: %s", ErrResultType, out.Type())
	}
}
