// Package checks holds helpers shared by the checking engines under it.
//
// Engines live in subpackages:
//
//   - expr: CEL expressions over the target filesystem and bound values
//   - script: executables following the SCE exit-code protocol
//   - file: declarative stat-based file tests
//
// Each engine implements policy.CheckingEngine and is registered with a
// policy.Model under its System URI.
package checks
