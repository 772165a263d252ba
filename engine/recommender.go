package engine

import (
	"math/rand"
	"sort"

	"simsom/population"
)

// defaultInventoryHighWater/LowWater bound the Recommender's global
// inventory (spec 3, "Global message inventory"; spec 9, "Bounded
// inventories"): once the inventory exceeds the high-water mark it is
// truncated back down to the low-water mark, keeping only the most
// recent messages.
const (
	defaultInventoryHighWater = 2000
	defaultInventoryLowWater  = 1000
)

// FeedConfig holds the Recommender's tunables: the in/out-of-network
// mixing ratios (spec 4.5, default 0.5/0.5) and inventory watermarks.
type FeedConfig struct {
	PIn        float64
	POut       float64
	HighWater  int
	LowWater   int
}

// DefaultFeedConfig returns the spec's stated defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{PIn: 0.5, POut: 0.5, HighWater: defaultInventoryHighWater, LowWater: defaultInventoryLowWater}
}

// Recommender owns the bounded global message inventory and builds
// per-user feeds from it (spec 4.5). It is not safe for concurrent use;
// the pipeline drives it from a single goroutine.
type Recommender struct {
	cfg       FeedConfig
	inventory []*population.Message

	// suspended mirrors the Policy Evaluator's suspend/terminate
	// decisions (spec 4.6), fed to the Recommender over its own channel
	// edge rather than read back out of the Data Manager's users_by_uid —
	// that map is exclusively the Data Manager goroutine's (spec 5).
	suspended map[population.UID]bool
}

// NewRecommender returns an empty Recommender using cfg.
func NewRecommender(cfg FeedConfig) *Recommender {
	return &Recommender{cfg: cfg, suspended: map[population.UID]bool{}}
}

// SetSuspended records uid's current suspend/terminate state, as reported
// by the Policy Evaluator. Called only from the Recommender's own
// goroutine.
func (r *Recommender) SetSuspended(uid population.UID, suspended bool) {
	if suspended {
		r.suspended[uid] = true
	} else {
		delete(r.suspended, uid)
	}
}

// IsSuspended reports whether uid is currently suspended or terminated,
// per the most recent Policy Evaluator decision seen.
func (r *Recommender) IsSuspended(uid population.UID) bool {
	return r.suspended[uid]
}

// Ingest appends freshly produced messages to the global inventory,
// truncating to LowWater from the tail (most recent) once HighWater is
// exceeded.
func (r *Recommender) Ingest(messages []*population.Message) {
	r.inventory = append(r.inventory, messages...)
	if len(r.inventory) > r.cfg.HighWater {
		r.inventory = append([]*population.Message(nil), r.inventory[len(r.inventory)-r.cfg.LowWater:]...)
	}
}

// BuildFeed assembles user u's newsfeed from the current inventory: an
// in-network pool (messages authored by u's friends) and an
// out-of-network pool (everything else), each trimmed to its configured
// fraction, deduplicated by reshare chain, ranked by topic similarity,
// and truncated to u.CutOff. isAuthorSuspended lets the caller suppress
// messages from currently-suspended authors (spec 4.5's optional
// post-filter), and may be nil.
func (r *Recommender) BuildFeed(u *population.User, isAuthorSuspended func(population.UID) bool) []*population.Message {
	var inMessages, outMessages []*population.Message
	for _, m := range r.inventory {
		if isAuthorSuspended != nil && isAuthorSuspended(m.UID) {
			continue
		}
		if _, ok := u.Friends[m.UID]; ok {
			inMessages = append(inMessages, m)
		} else {
			outMessages = append(outMessages, m)
		}
	}

	inMessages = takeFraction(inMessages, r.cfg.PIn)
	outMessages = takeFraction(outMessages, r.cfg.POut)

	candidates := append(inMessages, outMessages...)
	deduped := cleanFeed(candidates)
	ranked := rankByTopicSimilarity(u.TopicInterest, deduped)

	if len(ranked) > u.CutOff {
		ranked = ranked[:u.CutOff]
	}
	return ranked
}

// takeFraction shuffles messages (so repeated calls don't always surface
// the same leading slice of the inventory, which is kept in ingestion
// order, per the
// surviving clean_feed draft's shuffle-before-truncate) and returns the
// first floor(len*fraction) of them.
func takeFraction(messages []*population.Message, fraction float64) []*population.Message {
	if len(messages) == 0 {
		return nil
	}
	shuffled := append([]*population.Message(nil), messages...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	n := int(float64(len(shuffled)) * fraction)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// chainKey identifies the reshare chain m belongs to: its own MID for an
// original post, or ResharedOriginalID for a reshare of one — so an
// original and every reshare of it key identically.
func chainKey(m *population.Message) string {
	if m.IsReshare() {
		return m.ResharedOriginalID
	}
	return m.MID
}

// cleanFeed de-duplicates reshare chains (spec 4.5): messages sort by
// Time descending; every message (original or reshare) is keyed by
// chainKey, so an original and its reshares collapse into one chain.
// Only the first (most recent) message of each chain is kept, weighted
// by how many messages of that chain were seen. The kept set is then
// re-sorted by (weight descending, time descending), ties broken by
// original order (a stable sort).
func cleanFeed(messages []*population.Message) []*population.Message {
	sorted := append([]*population.Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time > sorted[j].Time })

	weight := map[string]int{}
	seen := map[string]bool{}
	var kept []*population.Message
	for _, m := range sorted {
		key := chainKey(m)
		weight[key]++
		if !seen[key] {
			seen[key] = true
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		wi, wj := weight[chainKey(kept[i])], weight[chainKey(kept[j])]
		if wi != wj {
			return wi > wj
		}
		return kept[i].Time > kept[j].Time
	})
	return kept
}

// rankByTopicSimilarity sorts messages by cosine similarity to interest
// descending, stable under ties. An empty input returns empty, not nil,
// to match build_feed's documented boundary behavior.
func rankByTopicSimilarity(interest population.Vector, messages []*population.Message) []*population.Message {
	ranked := append([]*population.Message{}, messages...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return population.CosineSimilarity(interest, ranked[i].Topics) >
			population.CosineSimilarity(interest, ranked[j].Topics)
	})
	return ranked
}
