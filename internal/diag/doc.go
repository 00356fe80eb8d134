// Package diag defines the diagnostic model shared by every pipeline stage:
// severities, stable codes, the Diagnostic value itself, and the Bag/Reporter
// plumbing stages use to emit findings without unwinding the run.
package diag
