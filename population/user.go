package population

import (
	"fmt"
	"math"
	"math/rand"
)

// User is the authoritative record the Data Manager owns; copies of it
// travel through the pipeline and are reconciled back into the Data
// Manager's map when a Worker returns its processed result.
//
// Friends/followers are built once at population-construction time and
// are immutable for the life of a run.
//
// The suspension fields extend User with the state the Policy Evaluator
// needs (spec 4.6); they live directly on User rather than behind an
// embedding indirection since every participant that copies a User needs
// to see them.
type User struct {
	UID               UID
	Friends           map[UID]struct{}
	Followers         map[UID]struct{}
	MeanActionPerDay  float64
	CutOff            int
	TopicInterest     Vector
	Newsfeed          []*Message
	PostCount         int
	RepostCount       int
	ViewCount         int

	// Reshare policy: probability of posting new content vs. resharing
	// from the newsfeed when it is non-empty (mu in the original source).
	Mu float64

	// Policy Evaluator state (spec 4.6).
	IsSuspended        bool
	SuspensionLiftTime float64
	StrikeTimestamps   []float64
	IsTerminated       bool
	BadMessagePosting  bool
}

// NewUser returns a User with empty friend/follower sets and a fresh,
// sparse topic-interest vector. Friends/followers are wired up by the
// population builder after all users exist.
func NewUser(uid UID, topicCount int, meanActionPerDay float64, cutOff int) *User {
	return &User{
		UID:              uid,
		Friends:          map[UID]struct{}{},
		Followers:        map[UID]struct{}{},
		MeanActionPerDay: meanActionPerDay,
		CutOff:           cutOff,
		TopicInterest:    randomSparseTopics(topicCount),
		Mu:               0.5,
	}
}

func randomSparseTopics(total int) Vector {
	v := make(Vector, total)
	if total == 0 {
		return v
	}
	numActive := 1 + rand.Intn(total)
	for _, idx := range rand.Perm(total)[:numActive] {
		v[idx] = rand.Float64()
	}
	return v
}

// Clone returns a copy of u suitable for handing to a Worker: the
// friend/follower sets are shared (immutable for the run) but Newsfeed,
// TopicInterest and StrikeTimestamps get their own backing arrays so a
// Worker's mutations never alias the Data Manager's record until it is
// explicitly returned and reconciled.
func (u *User) Clone() *User {
	cp := *u
	if u.TopicInterest != nil {
		cp.TopicInterest = append(Vector(nil), u.TopicInterest...)
	}
	if u.Newsfeed != nil {
		cp.Newsfeed = append([]*Message(nil), u.Newsfeed...)
	}
	if u.StrikeTimestamps != nil {
		cp.StrikeTimestamps = append([]float64(nil), u.StrikeTimestamps...)
	}
	return &cp
}

// MakeActions is the Worker's per-dispatch action contract (spec 4.4): it
// either posts a new original message or reshares one from the current
// newsfeed, recording a View for every feed item scanned along the way,
// and returns the produced messages plus passive actions. It also mutates
// u.Newsfeed (truncated to CutOff), matching the external contract the
// spec describes but does not itself define the shape of.
func (u *User) MakeActions() (newMessages []*Message, passive []*PassiveAction) {
	if len(u.Newsfeed) > 0 && rand.Float64() > u.Mu {
		msg, views := u.reshareFromFeed()
		newMessages = append(newMessages, msg)
		passive = append(passive, views...)
	} else {
		newMessages = append(newMessages, u.postMessage())
	}

	if len(u.Newsfeed) > u.CutOff {
		u.Newsfeed = u.Newsfeed[:u.CutOff]
	}
	return
}

func (u *User) postMessage() *Message {
	u.PostCount++
	return &Message{
		MID:     fmt.Sprintf("P%d_%s", u.PostCount, u.UID),
		UID:     u.UID,
		Quality: clamp01(rand.Float64()),
		Appeal:  rightSkewedAppeal(),
		Topics:  messageTopicsFromInterest(u.TopicInterest),
	}
}

// reshareFromFeed scans the newsfeed for a target message to reshare,
// preferring the first one whose appeal clears a random threshold
// (matching the "scroll until something catches the eye" policy of the
// original source), recording a View for every item scanned.
func (u *User) reshareFromFeed() (*Message, []*PassiveAction) {
	threshold := rand.Float64()
	var target *Message
	views := make([]*PassiveAction, 0, len(u.Newsfeed))

	for _, msg := range u.Newsfeed {
		u.ViewCount++
		views = append(views, &PassiveAction{
			VID:       fmt.Sprintf("V%d_%s", u.ViewCount, u.UID),
			UID:       u.UID,
			ParentMID: msg.MID,
			ParentUID: msg.UID,
		})
		if target == nil && msg.Appeal >= threshold {
			target = msg
		}
	}
	if target == nil {
		target = u.Newsfeed[rand.Intn(len(u.Newsfeed))]
	}

	u.RepostCount++
	reshare := &Message{
		MID:            fmt.Sprintf("R%d_%s", u.RepostCount, u.UID),
		UID:            u.UID,
		Quality:        target.Quality,
		Appeal:         target.Appeal,
		Topics:         target.Topics,
		ResharedUserID: target.UID,
	}
	if target.IsReshare() {
		reshare.ResharedID = target.MID
		reshare.ResharedOriginalID = target.ResharedOriginalID
	} else {
		reshare.ResharedID = target.MID
		reshare.ResharedOriginalID = target.MID
	}
	return reshare, views
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// rightSkewedAppeal samples a right-skewed appeal value via inverse
// transform sampling, matching the original source's appeal_func.
func rightSkewedAppeal() float64 {
	const exponent = 5.0
	u := rand.Float64()
	return 1 - math.Pow(1-u, 1/exponent)
}

// messageTopicsFromInterest samples a handful of the author's interests,
// scaled by a bit of noise, into a message-sized topic vector, plus an
// occasional off-interest "noise" topic.
func messageTopicsFromInterest(interest Vector) Vector {
	const maxTopics = 5
	const noiseLevel = 0.2

	topics := make(Vector, len(interest))
	var active []int
	for i, w := range interest {
		if w > 0 {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return topics
	}

	n := 1 + rand.Intn(maxTopics)
	for i := 0; i < n; i++ {
		idx := active[rand.Intn(len(active))]
		variation := 0.5 + rand.Float64()*0.5
		topics[idx] = clamp01(interest[idx] * variation)
	}

	if rand.Float64() < noiseLevel {
		idx := rand.Intn(len(interest))
		if interest[idx] == 0 {
			topics[idx] = 0.1 + rand.Float64()*0.9
		}
	}
	return topics
}
