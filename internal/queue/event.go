// Package queue carries notification events over the message broker. The
// API publishes fire-and-forget; the bundled consumer drains the queue into
// an audit log, standing in for the mail sender.
package queue

// Event kinds published to the notification queue.
const (
	EventAssignmentCreated  = "assignment.created"
	EventSLEInvited         = "sle.invited"
	EventSLEAssessed        = "sle.assessed"
	EventSignOffRecorded    = "signoff.recorded"
	EventLearningNeedDone   = "learning_need.completed"
	EventReviewSectionSaved = "review.section_saved"
)

// NotificationEvent is the single payload shape on the notification queue.
// It carries enough for a downstream notifier to address and render a
// message without querying the primary database.
type NotificationEvent struct {
	Kind       string `json:"kind"`
	UserID     uint64 `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Link       string `json:"link,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
