package models

import "errors"

// ActionKind identifies the outcome of a user-facing operation so that front
// ends can route on it.
type ActionKind string

// Action outcomes.
const (
	ActionRecordCreated    ActionKind = "record_created"
	ActionReportGenerated  ActionKind = "report_generated"
	ActionValidationFailed ActionKind = "validation_failed"
)

// ActionOutcome is returned by quick add and report export.
type ActionOutcome struct {
	Kind ActionKind
	// ExpenseID is set for ActionRecordCreated.
	ExpenseID int64
	// AttachmentID and Filename are set for ActionReportGenerated.
	AttachmentID int64
	Filename     string
	MimeType     string
	Data         []byte
	// Message is an advisory or error text for the user.
	Message string
}

// OutcomeFromError converts a ValidationError into a validation_failed
// outcome. Other errors are returned unchanged.
func OutcomeFromError(err error) (*ActionOutcome, error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ActionOutcome{Kind: ActionValidationFailed, Message: ve.Message}, nil
	}
	return nil, err
}
