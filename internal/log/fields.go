package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldAccountID   = "account_id"
	FieldTransaction = "transaction_id"
	FieldRuleID      = "rule_id"
	FieldRecurringID = "recurring_id"
	FieldTagID       = "tag_id"
	FieldAmountCents = "amount_cents"
	FieldFrequency   = "frequency"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRules     = "rules"
	ComponentRecurring = "recurring"
	ComponentReports   = "reports"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpReprocess = "reprocess"
	OpCatchUp   = "catch_up"
	OpAggregate = "aggregate"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
