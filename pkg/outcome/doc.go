// Package outcome defines the XCCDF rule result values and the truth tables
// used to combine them.
//
// # Outcomes
//
// Nine outcomes are defined, abbreviated in the tables as:
//
//	P pass            F fail             E error
//	U unknown         N notapplicable    K notchecked
//	S notselected     I informational    X fixed
//
// # Combination
//
// And and Or implement the XCCDF AND and OR truth tables cell for cell. Both
// tables are symmetric, so folding a list of outcomes gives the same answer
// regardless of order:
//
//	outcome.Fold(outcome.OperatorAnd, outcome.Pass, outcome.NotApplicable, outcome.Fail) // Fail
//	outcome.Fold(outcome.OperatorOr, outcome.Fail, outcome.Pass)                        // Pass
//
// Negate swaps Pass and Fail and leaves every other outcome unchanged.
package outcome
