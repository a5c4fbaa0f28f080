package storage

import (
	"time"

	"github.com/google/uuid"
)

// RecordModel is a persisted account record. Data holds the serialized
// account exactly as it would sit on chain; Version increases by one on every
// successful update.
type RecordModel struct {
	Key       string    `json:"key" bson:"_id" db:"key"`
	Data      []byte    `json:"data" bson:"data" db:"data"`
	Version   int64     `json:"version" bson:"version" db:"version"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// SwapModel is one journal entry for a swap that passed authorization.
type SwapModel struct {
	ID               string    `json:"id" bson:"_id" db:"id"`
	Signature        string    `json:"signature,omitempty" bson:"signature,omitempty" db:"signature"`
	Caller           string    `json:"caller" bson:"caller" db:"caller"`
	Pool             string    `json:"pool" bson:"pool" db:"pool"`
	ProgramID        string    `json:"program_id" bson:"program_id" db:"program_id"`
	AmountIn         uint64    `json:"amount_in" bson:"amount_in" db:"amount_in"`
	MinimumAmountOut uint64    `json:"minimum_amount_out" bson:"minimum_amount_out" db:"minimum_amount_out"`
	Success          bool      `json:"success" bson:"success" db:"success"`
	Error            string    `json:"error,omitempty" bson:"error,omitempty" db:"error"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// NewSwapModel returns a journal entry with a fresh ID and timestamp.
func NewSwapModel() *SwapModel {
	return &SwapModel{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}
