package models

import "time"

// EventType names a workflow event delivered to notification sinks.
type EventType string

const (
	EventManuscriptCreated     EventType = "manuscript.created"
	EventFileAttached          EventType = "manuscript.file_attached"
	EventManuscriptSubmitted   EventType = "manuscript.submitted"
	EventManuscriptResubmitted EventType = "manuscript.resubmitted"
	EventReviewerAssigned      EventType = "assignment.created"
	EventAssignmentAccepted    EventType = "assignment.accepted"
	EventAssignmentDeclined    EventType = "assignment.declined"
	EventAssignmentWithdrawn   EventType = "assignment.withdrawn"
	EventReviewSubmitted       EventType = "assignment.completed"
	EventDecisionMade          EventType = "decision.made"
	EventRevisionRequested     EventType = "decision.revision_requested"
	EventManuscriptPublished   EventType = "manuscript.published"
)

// WorkflowEvent is emitted after a transition commits.
type WorkflowEvent struct {
	Type         EventType `json:"type"`
	ManuscriptID string    `json:"manuscript_id"`
	ActorID      string    `json:"actor_id"`
	Timestamp    time.Time `json:"timestamp"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	DecisionID   string    `json:"decision_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Recipients   []string  `json:"recipients,omitempty"`
}
