package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/content"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/result"
	"mercator-hq/auditor/pkg/scoring"
	"mercator-hq/auditor/pkg/store"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

// Colorize renders an outcome name in its terminal color. Colors are
// dropped automatically when stdout is not a terminal.
func Colorize(o outcome.Outcome) string {
	var c *color.Color
	switch o {
	case outcome.Pass, outcome.Fixed:
		c = color.New(color.FgGreen)
	case outcome.Fail:
		c = color.New(color.FgRed, color.Bold)
	case outcome.Error, outcome.Unknown:
		c = color.New(color.FgYellow)
	case outcome.Informational:
		c = color.New(color.FgCyan)
	default:
		c = color.New(color.Faint)
	}
	return c.Sprint(o.String())
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// ScoreView is one score in command output.
type ScoreView struct {
	System  string  `json:"system" yaml:"system"`
	Value   float64 `json:"value" yaml:"value"`
	Max     float64 `json:"max" yaml:"max"`
	Percent float64 `json:"percent" yaml:"percent"`
}

func newScoreViews(scores []*scoring.Score) []ScoreView {
	out := make([]ScoreView, 0, len(scores))
	for _, s := range scores {
		out = append(out, ScoreView{System: s.System, Value: s.Value, Max: s.Max, Percent: s.Percent()})
	}
	return out
}

func scoreSummary(scores []ScoreView) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, fmt.Sprintf("%s=%.2f/%.2f", shortSystem(s.System), s.Value, s.Max))
	}
	return strings.Join(parts, " ")
}

// shortSystem trims the common XCCDF scoring prefix.
func shortSystem(system string) string {
	return strings.TrimPrefix(system, "urn:xccdf:scoring:")
}

// CheckView is one dispatched check of a rule.
type CheckView struct {
	System  string `json:"system" yaml:"system"`
	Href    string `json:"href,omitempty" yaml:"href,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RuleView is the outcome of one rule.
type RuleView struct {
	ID       string      `json:"id" yaml:"id"`
	Title    string      `json:"title,omitempty" yaml:"title,omitempty"`
	Group    string      `json:"group,omitempty" yaml:"group,omitempty"`
	Outcome  string      `json:"outcome" yaml:"outcome"`
	Severity string      `json:"severity,omitempty" yaml:"severity,omitempty"`
	Weight   float64     `json:"weight" yaml:"weight"`
	Role     string      `json:"role,omitempty" yaml:"role,omitempty"`
	Checks   []CheckView `json:"checks,omitempty" yaml:"checks,omitempty"`

	outcome outcome.Outcome
}

// ResultView is one stored evaluation with every rule outcome.
type ResultView struct {
	ID          string         `json:"id" yaml:"id"`
	BenchmarkID string         `json:"benchmark_id" yaml:"benchmark_id"`
	ProfileID   string         `json:"profile_id" yaml:"profile_id"`
	Trigger     string         `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Outcome     string         `json:"outcome" yaml:"outcome"`
	StartTime   time.Time      `json:"start_time" yaml:"start_time"`
	EndTime     time.Time      `json:"end_time" yaml:"end_time"`
	Duration    string         `json:"duration" yaml:"duration"`
	Counts      map[string]int `json:"counts" yaml:"counts"`
	Scores      []ScoreView    `json:"scores,omitempty" yaml:"scores,omitempty"`
	Rules       []RuleView     `json:"rules" yaml:"rules"`

	outcome outcome.Outcome
}

// NewResultView flattens a stored record for output.
func NewResultView(rec *store.Record) *ResultView {
	v := &ResultView{
		ID:          rec.ID,
		BenchmarkID: rec.BenchmarkID,
		ProfileID:   rec.ProfileID,
		Trigger:     rec.Trigger,
		Outcome:     rec.Outcome.String(),
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		Duration:    rec.EndTime.Sub(rec.StartTime).Round(time.Millisecond).String(),
		Counts:      make(map[string]int),
		Scores:      newScoreViews(rec.Scores),
		outcome:     rec.Outcome,
	}
	if rec.Result == nil {
		return v
	}
	for o, n := range rec.Result.Counts() {
		v.Counts[o.String()] = n
	}

	var collect func(nodes []*result.Node, group string)
	collect = func(nodes []*result.Node, group string) {
		for _, n := range nodes {
			if n.Kind == result.KindGroup {
				collect(n.Children, n.ID)
				continue
			}
			rv := RuleView{
				ID:       n.ID,
				Title:    n.Title,
				Group:    group,
				Outcome:  n.Outcome.String(),
				Severity: n.Severity,
				Weight:   n.Weight,
				Role:     string(n.Role),
				outcome:  n.Outcome,
			}
			for _, c := range n.Checks {
				rv.Checks = append(rv.Checks, CheckView{
					System:  c.System,
					Href:    c.Href,
					Name:    c.Name,
					Outcome: c.Outcome.String(),
					Error:   c.Error,
				})
			}
			v.Rules = append(v.Rules, rv)
		}
	}
	collect(rec.Result.Nodes(), "")
	return v
}

// RenderText writes a summary followed by one line per rule.
func (v *ResultView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s %s\n", bold("Result"), v.ID)
	fmt.Fprintf(w, "  Benchmark: %s\n", v.BenchmarkID)
	fmt.Fprintf(w, "  Profile:   %s\n", v.ProfileID)
	if v.Trigger != "" {
		fmt.Fprintf(w, "  Trigger:   %s\n", v.Trigger)
	}
	fmt.Fprintf(w, "  Started:   %s (%s)\n", v.StartTime.Format(time.RFC3339), v.Duration)
	fmt.Fprintf(w, "  Outcome:   %s\n", Colorize(v.outcome))
	for _, s := range v.Scores {
		fmt.Fprintf(w, "  Score:     %-16s %.2f/%.2f (%.1f%%)\n", shortSystem(s.System), s.Value, s.Max, s.Percent)
	}
	fmt.Fprintln(w)

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "OUTCOME\tRULE\tSEVERITY\tWEIGHT\tTITLE")
	for _, r := range v.Rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n", Colorize(r.outcome), r.ID, r.Severity, r.Weight, r.Title)
		for _, c := range r.Checks {
			if c.Error != "" {
				fmt.Fprintf(tw, "\t%s\t\t\t%s\n", faint("  "+checkName(c)), faint(c.Error))
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold("Totals:"), countSummary(v.Counts))
	return nil
}

func checkName(c CheckView) string {
	if c.Name != "" {
		return c.Href + "#" + c.Name
	}
	return c.Href
}

func countSummary(counts map[string]int) string {
	var parts []string
	for _, o := range outcome.All {
		if n := counts[o.String()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", o, n))
		}
	}
	if len(parts) == 0 {
		return "no rules evaluated"
	}
	return strings.Join(parts, " ")
}

// CSVHeader implements CSVRenderer.
func (v *ResultView) CSVHeader() []string {
	return []string{"result_id", "profile_id", "rule_id", "group", "outcome", "severity", "weight", "title"}
}

// CSVRows implements CSVRenderer.
func (v *ResultView) CSVRows() [][]string {
	rows := make([][]string, 0, len(v.Rules))
	for _, r := range v.Rules {
		rows = append(rows, []string{
			v.ID, v.ProfileID, r.ID, r.Group, r.Outcome, r.Severity,
			strconv.FormatFloat(r.Weight, 'f', -1, 64), r.Title,
		})
	}
	return rows
}

// ResultSet is the output of an evaluation run over several profiles.
type ResultSet struct {
	Results []*ResultView `json:"results" yaml:"results"`
}

// NewResultSet builds views for each record.
func NewResultSet(records []*store.Record) *ResultSet {
	set := &ResultSet{Results: make([]*ResultView, 0, len(records))}
	for _, rec := range records {
		set.Results = append(set.Results, NewResultView(rec))
	}
	return set
}

// RenderText renders each result in turn.
func (s *ResultSet) RenderText(w io.Writer) error {
	for i, r := range s.Results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := r.RenderText(w); err != nil {
			return err
		}
	}
	return nil
}

// CSVHeader implements CSVRenderer.
func (s *ResultSet) CSVHeader() []string {
	return (&ResultView{}).CSVHeader()
}

// CSVRows implements CSVRenderer.
func (s *ResultSet) CSVRows() [][]string {
	var rows [][]string
	for _, r := range s.Results {
		rows = append(rows, r.CSVRows()...)
	}
	return rows
}

// RecordSummary is one row of a result listing.
type RecordSummary struct {
	ID          string         `json:"id" yaml:"id"`
	BenchmarkID string         `json:"benchmark_id" yaml:"benchmark_id"`
	ProfileID   string         `json:"profile_id" yaml:"profile_id"`
	Trigger     string         `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Outcome     string         `json:"outcome" yaml:"outcome"`
	StartTime   time.Time      `json:"start_time" yaml:"start_time"`
	Duration    string         `json:"duration" yaml:"duration"`
	Counts      map[string]int `json:"counts,omitempty" yaml:"counts,omitempty"`
	Scores      []ScoreView    `json:"scores,omitempty" yaml:"scores,omitempty"`

	outcome outcome.Outcome
}

// RecordList is the output of "results list".
type RecordList struct {
	Total   int64           `json:"total" yaml:"total"`
	Results []RecordSummary `json:"results" yaml:"results"`
}

// NewRecordList summarizes records. total is the number of matches before
// paging.
func NewRecordList(records []*store.Record, total int64) *RecordList {
	l := &RecordList{Total: total, Results: make([]RecordSummary, 0, len(records))}
	for _, rec := range records {
		s := RecordSummary{
			ID:          rec.ID,
			BenchmarkID: rec.BenchmarkID,
			ProfileID:   rec.ProfileID,
			Trigger:     rec.Trigger,
			Outcome:     rec.Outcome.String(),
			StartTime:   rec.StartTime,
			Duration:    rec.EndTime.Sub(rec.StartTime).Round(time.Millisecond).String(),
			Scores:      newScoreViews(rec.Scores),
			outcome:     rec.Outcome,
		}
		if rec.Result != nil {
			s.Counts = make(map[string]int)
			for o, n := range rec.Result.Counts() {
				s.Counts[o.String()] = n
			}
		}
		l.Results = append(l.Results, s)
	}
	return l
}

// RenderText writes one line per record.
func (l *RecordList) RenderText(w io.Writer) error {
	if len(l.Results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tSTARTED\tPROFILE\tTRIGGER\tOUTCOME\tSCORES")
	for _, r := range l.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartTime.Format(time.RFC3339), r.ProfileID, r.Trigger, Colorize(r.outcome), scoreSummary(r.Scores))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nShowing %d of %d results\n", len(l.Results), l.Total)
	return err
}

// CSVHeader implements CSVRenderer.
func (l *RecordList) CSVHeader() []string {
	return []string{"id", "start_time", "benchmark_id", "profile_id", "trigger", "outcome", "duration", "scores"}
}

// CSVRows implements CSVRenderer.
func (l *RecordList) CSVRows() [][]string {
	rows := make([][]string, 0, len(l.Results))
	for _, r := range l.Results {
		rows = append(rows, []string{
			r.ID, r.StartTime.Format(time.RFC3339Nano), r.BenchmarkID, r.ProfileID,
			r.Trigger, r.Outcome, r.Duration, scoreSummary(r.Scores),
		})
	}
	return rows
}

// GroupScore is the default-system score of one group.
type GroupScore struct {
	Group   string  `json:"group" yaml:"group"`
	Value   float64 `json:"value" yaml:"value"`
	Max     float64 `json:"max" yaml:"max"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// ScoreReport is the output of the score command.
type ScoreReport struct {
	ResultID  string       `json:"result_id" yaml:"result_id"`
	ProfileID string       `json:"profile_id" yaml:"profile_id"`
	Scores    []ScoreView  `json:"scores" yaml:"scores"`
	Groups    []GroupScore `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// NewScoreReport builds a report from computed scores and an optional
// per-group breakdown.
func NewScoreReport(resultID, profileID string, scores []*scoring.Score, breakdown map[string]*scoring.Score) *ScoreReport {
	r := &ScoreReport{
		ResultID:  resultID,
		ProfileID: profileID,
		Scores:    newScoreViews(scores),
	}
	for id, s := range breakdown {
		r.Groups = append(r.Groups, GroupScore{Group: id, Value: s.Value, Max: s.Max, Percent: s.Percent()})
	}
	sort.Slice(r.Groups, func(i, j int) bool { return r.Groups[i].Group < r.Groups[j].Group })
	return r
}

// RenderText writes the scores and the group breakdown.
func (r *ScoreReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s %s (profile %s)\n\n", bold("Scores for"), r.ResultID, r.ProfileID)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "SYSTEM\tSCORE\tMAX\tPERCENT")
	for _, s := range r.Scores {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.1f%%\n", s.System, s.Value, s.Max, s.Percent)
	}
	if len(r.Groups) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "GROUP\tSCORE\tMAX\tPERCENT")
		for _, g := range r.Groups {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.1f%%\n", g.Group, g.Value, g.Max, g.Percent)
		}
	}
	return tw.Flush()
}

// CSVHeader implements CSVRenderer.
func (r *ScoreReport) CSVHeader() []string {
	return []string{"result_id", "profile_id", "scope", "value", "max", "percent"}
}

// CSVRows implements CSVRenderer. System scores come first, then groups.
func (r *ScoreReport) CSVRows() [][]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	var rows [][]string
	for _, s := range r.Scores {
		rows = append(rows, []string{r.ResultID, r.ProfileID, s.System, f(s.Value), f(s.Max), f(s.Percent)})
	}
	for _, g := range r.Groups {
		rows = append(rows, []string{r.ResultID, r.ProfileID, g.Group, f(g.Value), f(g.Max), f(g.Percent)})
	}
	return rows
}

// ProfileView describes one policy.
type ProfileView struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title,omitempty" yaml:"title,omitempty"`
	Extends       string `json:"extends,omitempty" yaml:"extends,omitempty"`
	SelectedRules int    `json:"selected_rules" yaml:"selected_rules"`
}

// ProfileList is the output of the profiles command.
type ProfileList struct {
	BenchmarkID string        `json:"benchmark_id" yaml:"benchmark_id"`
	Profiles    []ProfileView `json:"profiles" yaml:"profiles"`
}

// NewProfileList describes every policy of m, the default policy first.
func NewProfileList(m *policy.Model) *ProfileList {
	l := &ProfileList{BenchmarkID: m.Benchmark().ID}
	for _, p := range m.Policies() {
		v := ProfileView{ID: p.ID(), SelectedRules: len(p.SelectedRules())}
		if prof := p.Profile(); prof != nil {
			v.Title = prof.Title
			v.Extends = prof.Extends
		}
		l.Profiles = append(l.Profiles, v)
	}
	return l
}

// RenderText writes one line per profile.
func (l *ProfileList) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s %s\n\n", bold("Benchmark"), l.BenchmarkID)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "PROFILE\tRULES\tEXTENDS\tTITLE")
	for _, p := range l.Profiles {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.ID, p.SelectedRules, p.Extends, p.Title)
	}
	return tw.Flush()
}

// CSVHeader implements CSVRenderer.
func (l *ProfileList) CSVHeader() []string {
	return []string{"profile_id", "selected_rules", "extends", "title"}
}

// CSVRows implements CSVRenderer.
func (l *ProfileList) CSVRows() [][]string {
	rows := make([][]string, 0, len(l.Profiles))
	for _, p := range l.Profiles {
		rows = append(rows, []string{p.ID, strconv.Itoa(p.SelectedRules), p.Extends, p.Title})
	}
	return rows
}

// ResolvedRule is a rule after tailoring.
type ResolvedRule struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Selected bool     `json:"selected" yaml:"selected"`
	Weight   float64  `json:"weight" yaml:"weight"`
	Severity string   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Role     string   `json:"role" yaml:"role"`
	Systems  []string `json:"systems,omitempty" yaml:"systems,omitempty"`
}

// ResolvedValue is a value after tailoring.
type ResolvedValue struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    string `json:"value" yaml:"value"`
}

// ResolvedPolicy is the output of the resolve command.
type ResolvedPolicy struct {
	BenchmarkID string          `json:"benchmark_id" yaml:"benchmark_id"`
	ProfileID   string          `json:"profile_id" yaml:"profile_id"`
	Rules       []ResolvedRule  `json:"rules" yaml:"rules"`
	Values      []ResolvedValue `json:"values,omitempty" yaml:"values,omitempty"`
}

// NewResolvedPolicy describes a benchmark returned by policy.Model.Resolve.
func NewResolvedPolicy(profileID string, b *benchmark.Benchmark) *ResolvedPolicy {
	v := &ResolvedPolicy{BenchmarkID: b.ID, ProfileID: profileID}
	for _, rule := range b.Rules() {
		r := ResolvedRule{
			ID:       rule.ID,
			Title:    rule.Title,
			Selected: rule.SelectedByDefault(),
			Weight:   rule.EffectiveWeight(),
			Severity: rule.Severity,
			Role:     string(rule.EffectiveRole()),
		}
		seen := make(map[string]bool)
		addSystem := func(chk *benchmark.Check) {
			if !seen[chk.System] {
				seen[chk.System] = true
				r.Systems = append(r.Systems, chk.System)
			}
		}
		for _, chk := range rule.Checks {
			addSystem(chk)
		}
		if rule.ComplexCheck != nil {
			rule.ComplexCheck.Walk(addSystem)
		}
		v.Rules = append(v.Rules, r)
	}
	for _, val := range b.Values() {
		v.Values = append(v.Values, ResolvedValue{
			ID:       val.ID,
			Type:     string(val.ValueType),
			Operator: string(val.ValueOperator),
			Value:    val.DefaultValue(),
		})
	}
	return v
}

// RenderText writes the tailored rules and values.
func (p *ResolvedPolicy) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s %s (benchmark %s)\n\n", bold("Profile"), p.ProfileID, p.BenchmarkID)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "SELECTED\tRULE\tWEIGHT\tSEVERITY\tROLE")
	for _, r := range p.Rules {
		mark := faint("no")
		if r.Selected {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", mark, r.ID, r.Weight, r.Severity, r.Role)
	}
	if len(p.Values) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "VALUE\tTYPE\tOPERATOR\tSETTING")
		for _, v := range p.Values {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Type, v.Operator, v.Value)
		}
	}
	return tw.Flush()
}

// CSVHeader implements CSVRenderer.
func (p *ResolvedPolicy) CSVHeader() []string {
	return []string{"rule_id", "selected", "weight", "severity", "role", "title"}
}

// CSVRows implements CSVRenderer.
func (p *ResolvedPolicy) CSVRows() [][]string {
	rows := make([][]string, 0, len(p.Rules))
	for _, r := range p.Rules {
		rows = append(rows, []string{
			r.ID, strconv.FormatBool(r.Selected), strconv.FormatFloat(r.Weight, 'f', -1, 64),
			r.Severity, r.Role, r.Title,
		})
	}
	return rows
}

// ContentStatus is the output of the sync command.
type ContentStatus struct {
	Repository   string    `json:"repository" yaml:"repository"`
	Branch       string    `json:"branch" yaml:"branch"`
	Revision     string    `json:"revision" yaml:"revision"`
	Previous     string    `json:"previous,omitempty" yaml:"previous,omitempty"`
	Author       string    `json:"author" yaml:"author"`
	Committed    time.Time `json:"committed" yaml:"committed"`
	Message      string    `json:"message" yaml:"message"`
	ChangedFiles []string  `json:"changed_files,omitempty" yaml:"changed_files,omitempty"`
	Cloned       bool      `json:"cloned" yaml:"cloned"`
	Stale        bool      `json:"stale" yaml:"stale"`
}

// NewContentStatus combines a sync result with the commit it checked out.
func NewContentStatus(res *content.SyncResult, commit *content.CommitInfo) *ContentStatus {
	return &ContentStatus{
		Repository:   commit.Repository,
		Branch:       commit.Branch,
		Revision:     res.ToSHA,
		Previous:     res.FromSHA,
		Author:       commit.Author,
		Committed:    commit.Timestamp,
		Message:      strings.TrimSpace(commit.Message),
		ChangedFiles: res.ChangedFiles,
		Cloned:       res.Cloned,
		Stale:        res.Stale,
	}
}

// RenderText writes the revision and what changed.
func (s *ContentStatus) RenderText(w io.Writer) error {
	state := "up to date"
	switch {
	case s.Cloned:
		state = "cloned"
	case s.Stale:
		state = color.YellowString("stale (pull failed)")
	case s.Previous != s.Revision:
		state = fmt.Sprintf("updated from %s", shortSHA(s.Previous))
	}

	fmt.Fprintf(w, "%s %s (%s)\n", bold("Content"), s.Repository, s.Branch)
	fmt.Fprintf(w, "  Revision:  %s %s\n", shortSHA(s.Revision), state)
	fmt.Fprintf(w, "  Commit:    %s\n", firstLine(s.Message))
	fmt.Fprintf(w, "  Author:    %s, %s\n", s.Author, s.Committed.Format(time.RFC3339))
	for _, f := range s.ChangedFiles {
		fmt.Fprintf(w, "  %s %s\n", faint("changed"), f)
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
