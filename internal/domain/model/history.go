package model

import "time"

// RunRecord is one finished wait, kept in the local run history.
type RunRecord struct {
	ID           int64         `json:"id"`
	RepoFullName string        `json:"repo"`
	Identifier   string        `json:"identifier"`
	CommitSHA    string        `json:"commit_sha"`
	Outcome      Outcome       `json:"outcome"`
	Total        int           `json:"total"`
	Passed       int           `json:"passed"`
	Failed       int           `json:"failed"`
	Pending      int           `json:"pending"`
	RetriesUsed  int           `json:"retries_used"`
	Duration     time.Duration `json:"duration"`
	FinishedAt   time.Time     `json:"finished_at"`
}
