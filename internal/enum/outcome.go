package enum

type OutcomeKind string

const (
	OutcomeTransaction OutcomeKind = "transaction"
	OutcomeReceipt     OutcomeKind = "receipt"
)

func (t OutcomeKind) String() string {
	return string(t)
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

func (t OutcomeStatus) String() string {
	return string(t)
}

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionRejected  SubmissionStatus = "rejected"
	SubmissionSkipped   SubmissionStatus = "skipped"
)

func (t SubmissionStatus) String() string {
	return string(t)
}

type ConnectionStatus string

const (
	ConnectionActive    ConnectionStatus = "active"
	ConnectionNotActive ConnectionStatus = "not_active"
)

func (t ConnectionStatus) String() string {
	return string(t)
}
