package models

// VetoReason enumerates every policy rejection the validation chain can
// produce. Callers match on these values, so they are contract, not free text.
type VetoReason string

const (
	VetoNone                    VetoReason = ""
	VetoStaleAlert              VetoReason = "stale_alert"
	VetoDividendDate            VetoReason = "dividend_date"
	VetoExistingPosition        VetoReason = "existing_position"
	VetoSameDayDuplicate        VetoReason = "same_day_duplicate"
	VetoOpenPositionLimit       VetoReason = "open_position_limit"
	VetoTotalPositionsAndOrders VetoReason = "total_positions_and_orders_limit"
	VetoConfigMissing           VetoReason = "config_missing"
	VetoInstrumentNotResolvable VetoReason = "instrument_not_resolvable"
	VetoInstrumentNotTradeable  VetoReason = "instrument_not_tradeable"
)

// ValidationResult is produced fresh per alert and never persisted.
type ValidationResult struct {
	Allowed bool              `json:"allowed"`
	Reason  VetoReason        `json:"veto_reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func Allowed() ValidationResult {
	return ValidationResult{Allowed: true}
}

func Vetoed(reason VetoReason, details map[string]string) ValidationResult {
	return ValidationResult{Allowed: false, Reason: reason, Details: details}
}

// ExecutionStatus is the terminal state of an order submission.
type ExecutionStatus string

const (
	ExecutionFilled   ExecutionStatus = "filled"
	ExecutionRejected ExecutionStatus = "rejected"
	// ExecutionUnknown means the broker call failed and reconciliation
	// could not determine whether the order went through. No ledger record
	// is written; the operator must inspect before resubmitting.
	ExecutionUnknown ExecutionStatus = "unknown"
)

type ExecutionResult struct {
	Status        ExecutionStatus `json:"status"`
	DealReference string          `json:"deal_reference,omitempty"`
	DealID        string          `json:"deal_id,omitempty"`
	Reason        string          `json:"reason,omitempty"` // broker rejection reason, verbatim
	Plan          OrderPlan       `json:"plan"`
}
