// internal/models/notification.go
package models

const (
	EventSourceUser      = "user"
	EventTypeUserCreated = "UserCreated"
)

// DomainEvent is published to downstream consumers on the event bus.
type DomainEvent struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	DetailType string        `json:"detailType"`
	Detail     ValidatedUser `json:"detail"`
	Time       string        `json:"time"`
}

// UserNotification is pushed to the caller connection and, on success, mailed
// to the user.
type UserNotification struct {
	RequestID          string `json:"requestId"`
	CallerConnectionID string `json:"callerConnectionId,omitempty"`
	Email              string `json:"email,omitempty"`
	Firstname          string `json:"firstname,omitempty"`
	Status             string `json:"status"`
	Message            string `json:"message"`
	UserID             string `json:"userId,omitempty"`
	ErrorKind          string `json:"errorKind,omitempty"`
}

// DeadLetter is written once per identity extraction failure.
type DeadLetter struct {
	RequestID       string `json:"requestId"`
	IDCardReference string `json:"idCardReference"`
	ErrorCause      string `json:"errorCause"`
	FailedAt        string `json:"failedAt"`
}
