package population

import (
	"math/rand"
	"strconv"
)

// NetworkConfig parametrizes population generation. NetSize,
// ProbabilityFollow, and AvgNFriend mirror network_config's `net_size`,
// `probability_follow`, and `avg_n_friend`; TopicCount/MeanActionPerDay/
// CutOff are per-user defaults the spec's external network_config is
// silent on, supplied by the caller (main.go) rather than read from JSON.
type NetworkConfig struct {
	NetSize           int
	ProbabilityFollow float64
	AvgNFriend        int
	TopicCount        int
	MeanActionPerDay  float64
	CutOff            int
}

// BuildPopulation grows a directed social network via the random-walk
// growth model `simtools.init_network` implements (a directed variant of
// Toivonen et al.'s network growth model, PhysRevE 67.056104): start from
// a k_out-clique, then for each new node pick one random existing
// "anchor" node and attach k_out-1 more edges, each drawn from the
// anchor's own friends with probability p (modeling clustering) or
// uniformly at random over the whole population otherwise. Edge
// direction is "follows": an edge uid->f means uid follows f, so f
// gains uid as a follower.
func BuildPopulation(cfg NetworkConfig) map[UID]*User {
	kOut := cfg.AvgNFriend
	if kOut <= 0 {
		kOut = 3
	}
	cutOff := cfg.CutOff
	if cutOff <= 0 {
		cutOff = 15
	}

	users := make(map[UID]*User, cfg.NetSize)
	order := make([]UID, 0, cfg.NetSize)
	friends := make(map[UID][]UID, cfg.NetSize)

	newUser := func(i int) UID {
		uid := UID(strconv.Itoa(i))
		users[uid] = NewUser(uid, cfg.TopicCount, cfg.MeanActionPerDay, cutOff)
		order = append(order, uid)
		return uid
	}

	cliqueSize := kOut + 1
	if cfg.NetSize <= cliqueSize {
		cliqueSize = cfg.NetSize
	}
	for i := 0; i < cliqueSize; i++ {
		newUser(i)
	}
	for _, uid := range order {
		for _, other := range order {
			if other != uid {
				friends[uid] = append(friends[uid], other)
			}
		}
	}

	for i := cliqueSize; i < cfg.NetSize; i++ {
		anchor := order[rand.Intn(len(order))]
		uid := newUser(i)

		picked := map[UID]bool{anchor: true}
		newFriends := []UID{anchor}

		nClustered := 0
		for j := 0; j < kOut-1; j++ {
			if rand.Float64() < cfg.ProbabilityFollow {
				nClustered++
			}
		}

		for _, f := range shuffledCopy(friends[anchor]) {
			if len(newFriends) >= 1+nClustered {
				break
			}
			if !picked[f] {
				picked[f] = true
				newFriends = append(newFriends, f)
			}
		}
		for len(newFriends) < kOut && len(picked) < len(order) {
			candidate := order[rand.Intn(len(order))]
			if !picked[candidate] {
				picked[candidate] = true
				newFriends = append(newFriends, candidate)
			}
		}

		friends[uid] = newFriends
	}

	for uid, fs := range friends {
		for _, f := range fs {
			users[uid].Friends[f] = struct{}{}
			users[f].Followers[uid] = struct{}{}
		}
	}

	return users
}

func shuffledCopy(in []UID) []UID {
	out := append([]UID(nil), in...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
