package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCompleted))
	assert.True(t, ValidStatus(StatusFailed))
	assert.True(t, ValidStatus(StatusInfraction))
	assert.False(t, ValidStatus("REVERSED"))
	assert.False(t, ValidStatus("completed"))
	assert.False(t, ValidStatus(""))
}

func TestValidType(t *testing.T) {
	assert.True(t, ValidType(TypeDeposit))
	assert.True(t, ValidType(TypePayment))
	assert.True(t, ValidType(TypeTransfer))
	assert.True(t, ValidType(TypeWithdrawal))
	assert.False(t, ValidType("REFUND"))
	assert.False(t, ValidType(""))
}

func TestTransactionMetadata_StagesAppend(t *testing.T) {
	// Each lifecycle stage appends its own tagged field; earlier
	// stages survive unmarshalling round trips untouched.
	meta := TransactionMetadata{
		SenderUsername:   "alice",
		ReceiverUsername: "bob",
	}

	meta.Infraction = &InfractionRecord{
		Reason:  "chargeback",
		Date:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		AdminID: 9,
		Held:    true,
	}
	meta.Review = &ReviewRecord{
		Approved: false,
		Note:     "confirmed fraud",
		Date:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		AdminID:  9,
	}

	data, err := json.Marshal(meta)
	assert.NoError(t, err)

	var decoded TransactionMetadata
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "alice", decoded.SenderUsername)
	assert.Equal(t, "chargeback", decoded.Infraction.Reason)
	assert.True(t, decoded.Infraction.Held)
	assert.False(t, decoded.Review.Approved)
	assert.Equal(t, "confirmed fraud", decoded.Review.Note)
}

func TestTransactionMetadata_EmptyOmitsFields(t *testing.T) {
	data, err := json.Marshal(TransactionMetadata{})
	assert.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
