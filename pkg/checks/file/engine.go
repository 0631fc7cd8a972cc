package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
)

// System is the check system URI handled by this engine.
const System = "urn:mercator:check:file"

// Existence requirements on the collected items.
const (
	AtLeastOneExists = "at_least_one_exists"
	AllExist         = "all_exist"
	AnyExist         = "any_exist"
	NoneExist        = "none_exist"
)

// Check requirements on how many items must satisfy the state.
const (
	CheckAll         = "all"
	CheckAtLeastOne  = "at_least_one"
	CheckNoneSatisfy = "none_satisfy"
)

// ErrInvalidTest indicates a malformed test in a content document.
var ErrInvalidTest = errors.New("invalid file test")

// Test is one named file test.
type Test struct {
	Name      string   `yaml:"name"`
	Path      string   `yaml:"path"`
	Filename  string   `yaml:"filename"`
	Filenames []string `yaml:"filenames"`
	Pattern   string   `yaml:"pattern"`
	Existence string   `yaml:"existence"`
	Check     string   `yaml:"check"`
	State     *State   `yaml:"state"`

	pattern *regexp.Regexp
}

// State is the expected metadata. Nil fields are not compared.
type State struct {
	Type    string `yaml:"type"`
	UserID  *int64 `yaml:"user_id"`
	GroupID *int64 `yaml:"group_id"`
	SizeMax *int64 `yaml:"size_max"`

	// ModeMax lists the only permission bits that may be set.
	ModeMax *uint32 `yaml:"mode_max"`

	SUID   *bool `yaml:"suid"`
	SGID   *bool `yaml:"sgid"`
	Sticky *bool `yaml:"sticky"`
	URead  *bool `yaml:"uread"`
	UWrite *bool `yaml:"uwrite"`
	UExec  *bool `yaml:"uexec"`
	GRead  *bool `yaml:"gread"`
	GWrite *bool `yaml:"gwrite"`
	GExec  *bool `yaml:"gexec"`
	ORead  *bool `yaml:"oread"`
	OWrite *bool `yaml:"owrite"`
	OExec  *bool `yaml:"oexec"`
}

type document struct {
	Tests []*Test `yaml:"tests"`
}

// Config configures an Engine.
type Config struct {
	// ContentDir resolves relative hrefs.
	ContentDir string

	// Root prefixes every probed path.
	Root string
}

// Engine evaluates file tests.
type Engine struct {
	cfg    Config
	docs   *checks.DocumentCache[*document]
	logger *slog.Logger
}

// New creates an engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		docs:   checks.NewDocumentCache(parse),
		logger: logger.With("component", "check-file"),
	}
}

func parse(path string, data []byte) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, t := range doc.Tests {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("%s: test %d: %w", path, i, err)
		}
	}
	return &doc, nil
}

func (t *Test) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTest)
	}
	if t.Path == "" {
		return fmt.Errorf("%w: %s: missing path", ErrInvalidTest, t.Name)
	}
	targets := 0
	if t.Filename != "" {
		targets++
	}
	if len(t.Filenames) > 0 {
		targets++
	}
	if t.Pattern != "" {
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return fmt.Errorf("%w: %s: pattern: %w", ErrInvalidTest, t.Name, err)
		}
		t.pattern = re
		targets++
	}
	if targets > 1 {
		return fmt.Errorf("%w: %s: use one of filename, filenames or pattern", ErrInvalidTest, t.Name)
	}
	switch t.Existence {
	case "":
		t.Existence = AtLeastOneExists
	case AtLeastOneExists, AllExist, AnyExist, NoneExist:
	default:
		return fmt.Errorf("%w: %s: unknown existence %q", ErrInvalidTest, t.Name, t.Existence)
	}
	switch t.Check {
	case "":
		t.Check = CheckAll
	case CheckAll, CheckAtLeastOne, CheckNoneSatisfy:
	default:
		return fmt.Errorf("%w: %s: unknown check %q", ErrInvalidTest, t.Name, t.Check)
	}
	return nil
}

func (e *Engine) load(href string) (*document, error) {
	path, err := checks.ContentPath(e.cfg.ContentDir, href)
	if err != nil {
		return nil, err
	}
	return e.docs.Get(path)
}

// Evaluate runs the named test. An empty name selects the document's only
// test; an undefined name yields notchecked.
func (e *Engine) Evaluate(_ context.Context, ref policy.CheckRef, _ *policy.CheckContext) (outcome.Outcome, error) {
	doc, err := e.load(ref.Href)
	if err != nil {
		return outcome.Error, err
	}
	t := doc.find(ref.Name)
	if t == nil {
		return outcome.NotChecked, nil
	}
	items, missing, err := e.Collect(t)
	if err != nil {
		return outcome.Error, err
	}
	o := t.evaluate(items, missing)
	e.logger.Debug("file test evaluated",
		"test", t.Name,
		"items", len(items),
		"outcome", o.String(),
	)
	return o, nil
}

// NamesForHref lists the tests of a document.
func (e *Engine) NamesForHref(_ context.Context, href string) ([]string, error) {
	doc, err := e.load(href)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(doc.Tests))
	for i, t := range doc.Tests {
		names[i] = t.Name
	}
	return names, nil
}

// Collect gathers the items a test addresses. missing counts explicitly
// named files that do not exist.
func (e *Engine) Collect(t *Test) (items []*Item, missing int, err error) {
	var names []string
	switch {
	case t.Filename != "":
		names = []string{t.Filename}
	case len(t.Filenames) > 0:
		names = t.Filenames
	case t.pattern != nil:
		entries, err := os.ReadDir(joinRoot(e.cfg.Root, t.Path))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", t.Path, err)
		}
		for _, entry := range entries {
			if t.pattern.MatchString(entry.Name()) {
				names = append(names, entry.Name())
			}
		}
	default:
		// The directory itself.
		item, err := collect(e.cfg.Root, t.Path, "")
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 1, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return []*Item{item}, 0, nil
	}

	for _, name := range names {
		item, err := collect(e.cfg.Root, t.Path, name)
		if errors.Is(err, fs.ErrNotExist) {
			missing++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, missing, nil
}

func (d *document) find(name string) *Test {
	if name == "" {
		if len(d.Tests) == 1 {
			return d.Tests[0]
		}
		return nil
	}
	for _, t := range d.Tests {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (t *Test) evaluate(items []*Item, missing int) outcome.Outcome {
	switch t.Existence {
	case NoneExist:
		if len(items) > 0 {
			return outcome.Fail
		}
		return outcome.Pass
	case AllExist:
		if missing > 0 || len(items) == 0 {
			return outcome.Fail
		}
	case AtLeastOneExists:
		if len(items) == 0 {
			return outcome.Fail
		}
	}

	if t.State == nil {
		return outcome.Pass
	}

	satisfied := 0
	for _, item := range items {
		if t.State.Matches(item) {
			satisfied++
		}
	}

	var ok bool
	switch t.Check {
	case CheckAtLeastOne:
		ok = satisfied > 0
	case CheckNoneSatisfy:
		ok = satisfied == 0
	default:
		ok = satisfied == len(items)
	}
	if ok {
		return outcome.Pass
	}
	return outcome.Fail
}

// Matches reports whether item satisfies every declared field.
func (s *State) Matches(item *Item) bool {
	if s.Type != "" && s.Type != item.Type {
		return false
	}
	if s.UserID != nil && *s.UserID != item.UserID {
		return false
	}
	if s.GroupID != nil && *s.GroupID != item.GroupID {
		return false
	}
	if s.SizeMax != nil && item.Size > *s.SizeMax {
		return false
	}
	if s.ModeMax != nil && item.Mode&^*s.ModeMax != 0 {
		return false
	}

	bits := []struct {
		want *bool
		mask uint32
	}{
		{s.SUID, 0o4000}, {s.SGID, 0o2000}, {s.Sticky, 0o1000},
		{s.URead, 0o400}, {s.UWrite, 0o200}, {s.UExec, 0o100},
		{s.GRead, 0o040}, {s.GWrite, 0o020}, {s.GExec, 0o010},
		{s.ORead, 0o004}, {s.OWrite, 0o002}, {s.OExec, 0o001},
	}
	for _, b := range bits {
		if b.want != nil && item.Has(b.mask) != *b.want {
			return false
		}
	}
	return true
}
