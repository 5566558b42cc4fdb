package amqp

import (
	"encoding/json"
	"time"
)

// PasswordResetMessage carries a reset token to the email delivery worker.
// The token travels only over the broker, never in an HTTP response.
type PasswordResetMessage struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPasswordResetMessage(email, token string, expiresAt time.Time) *PasswordResetMessage {
	return &PasswordResetMessage{
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt,
		Timestamp: time.Now(),
	}
}

func (m *PasswordResetMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PasswordResetMessageFromJSON(data []byte) (*PasswordResetMessage, error) {
	var msg PasswordResetMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NotificationEvent mirrors a stored notification onto the broker so
// out-of-band channels can react to it.
type NotificationEvent struct {
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *NotificationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationEventFromJSON(data []byte) (*NotificationEvent, error) {
	var msg NotificationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecurringGeneratedEvent announces a recurrence materialization run.
type RecurringGeneratedEvent struct {
	UserID    int64     `json:"user_id"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *RecurringGeneratedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecurringGeneratedEventFromJSON(data []byte) (*RecurringGeneratedEvent, error) {
	var msg RecurringGeneratedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
