package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// UserSummary is the display form of a user: no password, no timestamps.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email" json:"email"`
	FullName string             `bson:"fullName" json:"fullName"`
}

// UnknownUser stands in for a referenced user that no longer exists.
func UnknownUser(id primitive.ObjectID) UserSummary {
	return UserSummary{ID: id}
}

// UserDirectory resolves user ids to summaries. Missing ids resolve to UnknownUser.
type UserDirectory map[primitive.ObjectID]UserSummary

func NewUserDirectory(users []User) UserDirectory {
	dir := make(UserDirectory, len(users))
	for _, u := range users {
		dir[u.ID] = u.Summary()
	}
	return dir
}

func (d UserDirectory) Lookup(id primitive.ObjectID) UserSummary {
	if s, ok := d[id]; ok {
		return s
	}
	return UnknownUser(id)
}
