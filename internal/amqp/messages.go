package amqp

import (
	"encoding/json"
	"time"
)

// VerificationEmailMessage asks the mail worker to send a verification
// email. It carries the token so the worker never needs database access.
type VerificationEmailMessage struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

// NewVerificationEmailMessage creates a verification email message.
func NewVerificationEmailMessage(userID int64, email, token string) *VerificationEmailMessage {
	return &VerificationEmailMessage{
		UserID:    userID,
		Email:     email,
		Token:     token,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *VerificationEmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// VerificationEmailMessageFromJSON creates a message from JSON bytes
func VerificationEmailMessageFromJSON(data []byte) (*VerificationEmailMessage, error) {
	var msg VerificationEmailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
