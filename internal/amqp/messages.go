package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tazzio/internal/core"
)

type MessageType string

const (
	TypeExpenseCreated         MessageType = "expense.created"
	TypeExpenseUpdated         MessageType = "expense.updated"
	TypeExpenseDeleted         MessageType = "expense.deleted"
	TypePasswordResetRequested MessageType = "password_reset.requested"
)

// Message is the single envelope published on the events queue. Which
// optional fields are set depends on Type.
type Message struct {
	Type       MessageType   `json:"type"`
	UserID     string        `json:"userId,omitempty"`
	ExpenseID  string        `json:"expenseId,omitempty"`
	Expense    *core.Expense `json:"expense,omitempty"`
	Email      string        `json:"email,omitempty"`
	ResetToken string        `json:"resetToken,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

func NewExpenseCreatedMessage(e core.Expense) *Message {
	return &Message{
		Type:      TypeExpenseCreated,
		UserID:    e.UserID,
		ExpenseID: e.ID,
		Expense:   &e,
		Timestamp: time.Now(),
	}
}

// NewExpenseUpdatedMessage carries the full expense after an edit.
func NewExpenseUpdatedMessage(e core.Expense) *Message {
	msg := NewExpenseCreatedMessage(e)
	msg.Type = TypeExpenseUpdated
	return msg
}

func NewExpenseDeletedMessage(userID, expenseID string) *Message {
	return &Message{
		Type:      TypeExpenseDeleted,
		UserID:    userID,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

// NewPasswordResetMessage carries the reset token to the mailer.
func NewPasswordResetMessage(email, token string) *Message {
	return &Message{
		Type:       TypePasswordResetRequested,
		Email:      email,
		ResetToken: token,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and checks the envelope.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeExpenseCreated, TypeExpenseUpdated:
		if msg.Expense == nil {
			return nil, fmt.Errorf("%s message without expense", msg.Type)
		}
	case TypeExpenseDeleted:
		if msg.ExpenseID == "" {
			return nil, fmt.Errorf("%s message without expense id", msg.Type)
		}
	case TypePasswordResetRequested:
		if msg.Email == "" {
			return nil, fmt.Errorf("%s message without email", msg.Type)
		}
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return &msg, nil
}
