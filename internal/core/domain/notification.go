package domain

// Severity of an operator notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a message for the operator.
// LogOnly notifications are written to the log but never delivered externally.
type Notification struct {
	Subject  string
	Message  string
	Severity Severity
	LogOnly  bool
}
