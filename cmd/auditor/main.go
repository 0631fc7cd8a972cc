// Command auditor evaluates XCCDF benchmarks against the local system.
//
// Usage:
//
//	auditor eval [profile...]        Evaluate profiles and record the results
//	auditor score [result-id]        Score a stored or fresh result
//	auditor resolve [profile]        Print the tailored rules and values
//	auditor profiles                 List the benchmark's profiles
//	auditor results list|show|prune  Query and prune the result history
//	auditor validate                 Check configuration, benchmark and content
//	auditor watch                    Re-evaluate when content changes
//	auditor schedule                 Evaluate on a cron schedule
//	auditor version                  Print version information
package main

func main() {
	Execute()
}
