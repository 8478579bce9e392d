package model

import "time"

// AnnouncementConfig controls the issue filed after protections are applied
type AnnouncementConfig struct {
	Enabled  bool
	Title    string
	Template string // text/template rendered with ProtectionReport
}

// ProtectionRetry bounds the retries of the protection update while a new
// repository becomes writable
type ProtectionRetry struct {
	InitialDelay    time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ProtectionReport describes one applied protection. It is the data passed
// to the announcement template and to notifiers.
type ProtectionReport struct {
	DeliveryID    string
	Repository    string
	RepositoryURL string
	Branch        string
	Sender        string
	Protection    *BranchProtectionSpec
	IssueURL      string
}
