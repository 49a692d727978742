// Package executor submits learner code to a remote sandbox and reports the
// outcome. The sandbox itself is a black box.
package executor

import "context"

// Submission is the source code to run.
type Submission struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin,omitempty"`
}

// Result is what the sandbox reported for a run.
type Result struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Runner is the interface every sandbox backend must implement.
type Runner interface {
	Run(ctx context.Context, sub Submission) (Result, error)
	HealthCheck(ctx context.Context) error
}
