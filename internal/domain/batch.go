package domain

import "time"

// BatchStatus is the lifecycle state of a batch archive submission.
type BatchStatus string

const (
	BatchPending   BatchStatus = "PENDING"
	BatchRunning   BatchStatus = "RUNNING"
	BatchCompleted BatchStatus = "COMPLETED"
	BatchFailed    BatchStatus = "FAILED"
	BatchCancelled BatchStatus = "CANCELLED"
)

// Batch is an archive submission; RawFiles reference it via BatchID.
type Batch struct {
	ID         int64
	Name       string
	Fingerprint string
	FileCount  int
	Status     BatchStatus
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Manifest is created once per (batch, asset, business-date) at staging time
// and never mutated by parsers afterwards.
type Manifest struct {
	ID              int64
	BatchID         int64
	AssetTag        string
	BusinessDate    time.Time
	ExpectedHourly  int // always 24
	FoundHourly     int
	HasDaily        bool
	HasCalibration  bool
	QualityFlags    []string
}

const ExpectedHourlyCount = 24

const (
	QualityBatchIncomplete = "batch_incomplete"
	QualityMissingDaily    = "missing_daily"
)
