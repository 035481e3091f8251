package invoice

import "fmt"

// AggregationReason classifies an aggregation precondition failure.
// Aggregation errors are deterministic caller errors, never retried.
type AggregationReason string

// Aggregation failure reasons.
const (
	// ReasonEmptyWorkSet: no billable work records to aggregate.
	ReasonEmptyWorkSet AggregationReason = "empty_work_set"
	// ReasonCrossClientRecord: a record belongs to a project owned by a
	// different client than the invoice target.
	ReasonCrossClientRecord AggregationReason = "cross_client_record"
	// ReasonAlreadyInvoiced: a record is already bound to an invoice and
	// is immutable.
	ReasonAlreadyInvoiced AggregationReason = "already_invoiced"
)

// AggregationError reports a violated aggregation precondition.
type AggregationError struct {
	Reason AggregationReason
	Detail string
}

func (e *AggregationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("aggregation failed (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("aggregation failed (%s)", e.Reason)
}
