package notification

import (
	"time"
)

// Type is the domain event tag carried by a notification. It drives both
// icon/label selection in the display layer and route bucketing in the
// aggregator. The set is open-ended: unknown types must never break
// rendering or bucketing.
type Type string

const (
	TypeTaskAssigned   Type = "task_assigned"
	TypeTaskDue        Type = "task_due"
	TypeTaskCompleted  Type = "task_completed"
	TypeCommentAdded   Type = "comment_added"
	TypeMention        Type = "mention"
	TypeInvoiceIssued  Type = "invoice_issued"
	TypeInvoiceOverdue Type = "invoice_overdue"
	TypeDocumentShared Type = "document_shared"
	TypeMemberJoined   Type = "member_joined"
	TypeSystemAlert    Type = "system_alert"
)

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is the core domain model. Instances are created by the
// backend and only observed by this engine, except for Read/ReadAt which
// the client may set optimistically ahead of server confirmation.
type Notification struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Priority   Priority       `json:"priority"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Read       bool           `json:"read"`
	ReadAt     *time.Time     `json:"readAt,omitempty"`
	ActionURL  string         `json:"actionUrl,omitempty"`
	EntityType string         `json:"entityType,omitempty"`
	EntityID   string         `json:"entityId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CompanyID  string         `json:"companyId,omitempty"` // empty = personal, not company-scoped
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// MarkAsRead marks the notification as read with the current timestamp.
// ReadAt is set only on the unread-to-read transition.
func (n *Notification) MarkAsRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}

// Target returns the navigation target for the notification: the explicit
// ActionURL when present, otherwise a path derived from the originating
// entity reference. Returns empty when neither is available.
func (n *Notification) Target() string {
	if n.ActionURL != "" {
		return n.ActionURL
	}
	if n.EntityType != "" && n.EntityID != "" {
		return "/" + n.EntityType + "/" + n.EntityID
	}
	return ""
}
