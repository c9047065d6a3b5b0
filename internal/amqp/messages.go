package amqp

import (
	"encoding/json"
	"time"
)

// RuleReprocessMessage asks the rules worker to re-run categorization rules
// over one account's transactions. The worker fetches everything else from
// the database.
type RuleReprocessMessage struct {
	AccountID string    `json:"account_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRuleReprocessMessage creates a reprocess request for an account.
func NewRuleReprocessMessage(accountID string) *RuleReprocessMessage {
	return &RuleReprocessMessage{
		AccountID: accountID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RuleReprocessMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RuleReprocessMessageFromJSON creates a message from JSON bytes
func RuleReprocessMessageFromJSON(data []byte) (*RuleReprocessMessage, error) {
	var msg RuleReprocessMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
