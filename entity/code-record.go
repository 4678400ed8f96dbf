package entity

import "time"

// CodeRecord is one usage slot of a promo code in the ledger.
// A code granting N uses is stored as N records with UsageOrdinal 1..N.
// Used flips false -> true once, through MarkUsed, and never back.
type CodeRecord struct {
	Id           string    `json:"id" bson:"_id"`
	Seq          int64     `json:"seq" bson:"seq"`
	InsertedAt   time.Time `json:"inserted_at" bson:"inserted_at"`
	ReceivedAt   time.Time `json:"received_at" bson:"received_at"`
	Code         string    `json:"code" bson:"code"`
	Denomination string    `json:"denomination" bson:"denomination"`
	UsageOrdinal int       `json:"usage_ordinal" bson:"usage_ordinal"`
	ExpiresAt    time.Time `json:"expires_at" bson:"expires_at"`
	Used         bool      `json:"used" bson:"used"`
}

// DedupeKey identifies records that are the same ingestion of the same code.
// InsertedAt, Id and Seq are not part of the key.
type DedupeKey struct {
	ReceivedAt   int64
	Code         string
	Denomination string
	UsageOrdinal int
	Used         bool
}

func (r *CodeRecord) DedupeKey() DedupeKey {
	return DedupeKey{
		ReceivedAt:   r.ReceivedAt.UnixNano(),
		Code:         r.Code,
		Denomination: r.Denomination,
		UsageOrdinal: r.UsageOrdinal,
		Used:         r.Used,
	}
}

// HasDeadline reports whether the source message declared an input deadline.
func (r *CodeRecord) HasDeadline() bool {
	return !r.ExpiresAt.IsZero()
}

// DenominationCount is one line of the unused summary.
type DenominationCount struct {
	Denomination string `json:"denomination" bson:"_id"`
	Count        int    `json:"count" bson:"count"`
}
