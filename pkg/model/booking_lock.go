package model

import "time"

// BookingLock is an advisory lock document. Its _id is the guarded key, so a
// second holder fails with a duplicate key error until the first one releases
// it or the TTL index reaps it.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func QuotaLockID(userID string) string {
	return "quota:" + userID
}
