// Package expr is a checking engine that evaluates CEL expressions.
//
// Content documents are YAML files listing named checks:
//
//	checks:
//	  - name: ssh_root_login
//	    applicable: fileExists("/etc/ssh/sshd_config")
//	    expr: fileMatches("/etc/ssh/sshd_config", "(?m)^PermitRootLogin\\s+no")
//	  - name: pass_min_len
//	    expr: int(values.MIN_LEN) >= 12
//
// An expression yielding true passes and false fails. An expression may also
// yield an outcome name such as "notapplicable". When an applicable
// expression is present and yields false, the check is notapplicable.
//
// Expressions see these variables:
//
//	values  map(string, string)  exported values by export name
//	rule    string               ID of the rule being evaluated
//	policy  string               ID of the evaluated policy
//
// and these functions, which resolve paths below the engine's root:
//
//	fileExists(path) bool
//	fileMode(path) int
//	fileContains(path, substring) bool
//	fileMatches(path, regex) bool
//	fileLines(path) list(string)
//	env(name) string
package expr
