package utils

import (
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseObjectID validates a hex id, naming the field on failure.
func ParseObjectID(value, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, BadRequest("Invalid %s", field)
	}
	return id, nil
}

// ParseObjectIDs validates every id. The whole list fails on the first bad id.
func ParseObjectIDs(values []string, field string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(v))
		if err != nil {
			return nil, BadRequest("Invalid %s", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts RFC3339 timestamps and plain calendar dates (UTC).
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
