package population

// UID is an opaque user identifier.
type UID string

// Message is a value object: a post or a reshare. Reshare fields are
// left at their zero value ("") for an original message.
//
// Invariant: if any of ResharedID/ResharedUserID is set, ResharedOriginalID
// is also set, and equals the root of the chain (see User.reshareFromFeed).
type Message struct {
	MID     string
	UID     UID
	Quality float64
	Appeal  float64
	Topics  Vector
	Time    float64

	ResharedID         string // mid of the message this one directly reshares, "" for an original
	ResharedOriginalID string // mid of the root of the reshare chain, "" for an original
	ResharedUserID     UID    // author of ResharedID, "" for an original
}

// IsReshare reports whether m is a reshare rather than an original post.
func (m *Message) IsReshare() bool {
	return m.ResharedOriginalID != ""
}

// PassiveAction records a View: a user scanned a feed item without
// resharing it.
type PassiveAction struct {
	VID       string
	UID       UID
	ParentMID string
	ParentUID UID
}

// FirehoseChunk is an ordered batch of messages timestamped together in
// one Data Manager ingestion cycle.
type FirehoseChunk []*Message
