// Package result holds the outcome tree produced by one policy evaluation.
//
// A TestResult mirrors the selected part of the benchmark: every evaluated
// rule is a leaf, and every group that contains at least one evaluated rule is
// an inner node whose outcome folds its children with the group's operator.
// The benchmark-level outcome folds the top-level nodes with AND.
//
// Results are assembled with a Builder and are read-only afterwards:
//
//	b := result.NewBuilder(id, benchmarkID, profileID, time.Now())
//	for _, rule := range rules {
//	    b.AddRule(rule, ruleResult)
//	}
//	tr := b.Finish(time.Now())
//	for _, rr := range tr.RuleResults() {
//	    fmt.Println(rr.ID, rr.Outcome)
//	}
package result
