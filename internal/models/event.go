package models

// Event actions published after listing writes.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// PropertyEvent announces a change to one listing.
type PropertyEvent struct {
	Action     string `json:"action"`
	PropertyID string `json:"property_id"`
}
