// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"bytes"
	"fmt"
	"math"

	"github.com/ChainSafe/go-grandpa/lib/crypto/ed25519"

	"github.com/tidwall/btree"
	"golang.org/x/exp/slices"
)

// VoterInfo holds the position and voting weight of a voter within a VoterSet
type VoterInfo struct {
	position uint
	weight   uint64
}

// Position returns the index of the voter in the ordered set
func (v VoterInfo) Position() uint {
	return v.position
}

// Weight returns the voting weight
func (v VoterInfo) Weight() uint64 {
	return v.weight
}

// IDVoterInfo pairs a voter's public key with its VoterInfo
type IDVoterInfo struct {
	ID ed25519.PublicKeyBytes
	VoterInfo
}

// VoterSet is the set of authorities eligible to vote, ordered by public
// key. Only authorities with voting power are carried: zero weights are
// dropped at construction.
type VoterSet struct {
	voters []IDVoterInfo
	// total weight of all voters
	totalWeight uint64
	// the weight of a supermajority of the set
	threshold uint64
}

// NewVoterSet builds a voter set from an authority list. Construction fails
// on an empty list, a duplicate key, or when no voting weight remains after
// zero-weight authorities are dropped.
func NewVoterSet(authorities []Authority) (*VoterSet, error) {
	if err := ValidateAuthorityList(authorities); err != nil {
		return nil, err
	}

	tree := btree.NewBTreeG[IDVoterInfo](func(a, b IDVoterInfo) bool {
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	var totalWeight uint64
	for _, auth := range authorities {
		if auth.Weight == 0 {
			continue
		}
		if auth.Weight > math.MaxUint64-totalWeight {
			return nil, fmt.Errorf("%w: at key %s", ErrWeightOverflow, auth.Key)
		}
		totalWeight += auth.Weight

		tree.Set(IDVoterInfo{
			ID:        auth.Key,
			VoterInfo: VoterInfo{weight: auth.Weight},
		})
	}

	if tree.Len() == 0 {
		return nil, ErrNoVotingWeight
	}

	voters := make([]IDVoterInfo, 0, tree.Len())
	var position uint
	tree.Scan(func(iv IDVoterInfo) bool {
		iv.position = position
		position++
		voters = append(voters, iv)
		return true
	})

	return &VoterSet{
		voters:      voters,
		totalWeight: totalWeight,
		threshold:   threshold(totalWeight),
	}, nil
}

// threshold returns the voter weight that is a supermajority of the given
// total: the smallest weight no more than a third short of it.
func threshold(totalWeight uint64) uint64 {
	faulty := (totalWeight - 1) / 3
	return totalWeight - faulty
}

// Get returns the voter info for the given key, or nil when the key holds no
// voting power in the set
func (v *VoterSet) Get(id ed25519.PublicKeyBytes) *VoterInfo {
	idx, found := slices.BinarySearchFunc(v.voters, id,
		func(iv IDVoterInfo, target ed25519.PublicKeyBytes) int {
			return bytes.Compare(iv.ID[:], target[:])
		})
	if !found {
		return nil
	}

	info := v.voters[idx].VoterInfo
	return &info
}

// Contains returns whether the given key holds voting power in the set
func (v *VoterSet) Contains(id ed25519.PublicKeyBytes) bool {
	return v.Get(id) != nil
}

// Len returns the number of voters in the set
func (v *VoterSet) Len() int {
	return len(v.voters)
}

// Nth returns the voter at position n of the ordered set, or nil when n is
// out of range
func (v *VoterSet) Nth(n uint) *IDVoterInfo {
	if n >= uint(len(v.voters)) {
		return nil
	}

	iv := v.voters[n]
	return &iv
}

// NthMod returns the voter at position n modulo the size of the set
func (v *VoterSet) NthMod(n uint) IDVoterInfo {
	return v.voters[int(n)%len(v.voters)]
}

// TotalWeight returns the total voting weight of the set
func (v *VoterSet) TotalWeight() uint64 {
	return v.totalWeight
}

// Threshold returns the supermajority weight threshold of the set
func (v *VoterSet) Threshold() uint64 {
	return v.threshold
}

// Voters returns the voters of the set in key order
func (v *VoterSet) Voters() []IDVoterInfo {
	voters := make([]IDVoterInfo, len(v.voters))
	copy(voters, v.voters)
	return voters
}
