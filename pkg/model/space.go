package model

import "time"

const (
	FieldSpaceID          = "spaceId"
	FieldCurrentUserCount = "currentUserCount"
	FieldLastUpdate       = "lastUpdate"
	FieldTimestamp        = "timestamp"
)

// Space is a tenant record. Only CurrentUserCount is written by the sweeper.
type Space struct {
	ID               string `bson:"_id" json:"id"`
	CurrentUserCount int64  `bson:"currentUserCount" json:"current_user_count"`
}

// ActiveUser is a presence marker owned by a space.
type ActiveUser struct {
	ID         string    `bson:"_id" json:"id"`
	SpaceID    string    `bson:"spaceId" json:"space_id"`
	LastUpdate time.Time `bson:"lastUpdate" json:"last_update"`
}

type Message struct {
	ID        string    `bson:"_id" json:"id"`
	SpaceID   string    `bson:"spaceId" json:"space_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// CollectionRef addresses the documents of one child collection that belong
// to a single space.
type CollectionRef struct {
	Collection string
	SpaceID    string
}

func (r CollectionRef) String() string {
	return r.Collection + "[spaceId=" + r.SpaceID + "]"
}
