package audit

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID int       `json:"transaction_id"`
	UserID        int       `json:"user_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details"`
}

type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogTransfer(transactionID, senderID, receiverID int, amount int64, status string) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "TRANSFER",
		TransactionID: transactionID,
		UserID:        senderID,
		Amount:        amount,
		Status:        status,
		Details: map[string]int{
			"sender_id":   senderID,
			"receiver_id": receiverID,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogInfraction(transactionID, adminID int, amount int64, held bool, reason string) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "INFRACTION_FLAG",
		TransactionID: transactionID,
		UserID:        adminID,
		Amount:        amount,
		Status:        "FLAGGED",
		Details: map[string]any{
			"reason": reason,
			"held":   held,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogReview(transactionID, adminID int, amount int64, approved bool) {
	status := "DENIED"
	if approved {
		status = "APPROVED"
	}
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "INFRACTION_REVIEW",
		TransactionID: transactionID,
		UserID:        adminID,
		Amount:        amount,
		Status:        status,
	}
	a.log(event)
}

func (a *AuditLogger) LogStatusOverride(transactionID, adminID int, from, to string) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "STATUS_OVERRIDE",
		TransactionID: transactionID,
		UserID:        adminID,
		Status:        to,
		Details:       map[string]string{"previous_status": from},
	}
	a.log(event)
}

func (a *AuditLogger) LogUserStatus(targetID, adminID int, status string) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "USER_STATUS",
		UserID:    targetID,
		Status:    status,
		Details:   map[string]int{"admin_id": adminID},
	}
	a.log(event)
}

func (a *AuditLogger) LogError(transactionID, userID int, err error) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		TransactionID: transactionID,
		UserID:        userID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[AUDIT] Failed to marshal event: %v", err)
		return
	}
	log.Printf("[AUDIT] %s", data)
}
