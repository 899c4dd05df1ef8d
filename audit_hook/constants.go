package audithook

// Action constants for audit events.
const (
	// Token actions
	ActionTokenDeployed = "token.deployed"

	// Transfer actions
	ActionTransferApplied  = "transfer.applied"
	ActionTransferRejected = "transfer.rejected"

	// Journal actions
	ActionJournalFlushed = "journal.flushed"
)

// Resource constants for audit events.
const (
	ResourceToken    = "token"
	ResourceTransfer = "transfer"
	ResourceJournal  = "journal"
)

// Category constants for audit events.
const (
	CategoryDeployment = "deployment"
	CategoryTransfer   = "transfer"
	CategoryStorage    = "storage"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
