// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"fmt"

	"github.com/ChainSafe/go-grandpa/lib/crypto/ed25519"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// Prevote is a vote cast during the prevote subround
type Prevote Vote

// Precommit is a vote cast during the precommit subround
type Precommit Vote

// Votes is the set of vote kinds an equivocation can be raised for
type Votes interface {
	Prevote | Precommit
}

// subroundOf returns the subround a vote of kind V belongs to
func subroundOf[V Votes](vote V) Subround {
	switch any(vote).(type) {
	case Prevote:
		return SubroundPrevote
	case Precommit:
		return SubroundPrecommit
	default:
		panic("unsupported vote kind")
	}
}

// targetOf returns the block a vote of kind V is cast for
func targetOf[V Votes](vote V) Vote {
	switch v := any(vote).(type) {
	case Prevote:
		return Vote(v)
	case Precommit:
		return Vote(v)
	default:
		panic("unsupported vote kind")
	}
}

// VoteSignature pairs a vote with the signature of its author
type VoteSignature[V Votes] struct {
	Vote      V
	Signature ed25519.SignatureBytes
}

// Equivocation is two distinct votes of the same kind signed by the same
// voter in the same round
type Equivocation[V Votes] struct {
	// RoundNumber is the round both votes were cast in
	RoundNumber uint64
	// Identity is the public key of the equivocating voter
	Identity ed25519.PublicKeyBytes
	First    VoteSignature[V]
	Second   VoteSignature[V]
}

// GrandpaEquivocationProof holds an equivocation together with the authority
// set it was observed under
type GrandpaEquivocationProof[V Votes] struct {
	SetID        uint64
	Round        uint64
	Equivocation Equivocation[V]
}

// VerifyEquivocationProof checks a proof against the authority set it claims
// to have been observed under. A valid proof carries two conflicting votes,
// both correctly signed by the offender for the proof's round and set, and
// the offender is a member of the given authority list.
func VerifyEquivocationProof[V Votes](proof GrandpaEquivocationProof[V], authorities []Authority) error {
	equivocation := proof.Equivocation
	firstTarget := targetOf(equivocation.First.Vote)
	secondTarget := targetOf(equivocation.Second.Vote)

	if firstTarget == secondTarget {
		return fmt.Errorf("%w: both votes are for block %s", ErrMalformedProof, firstTarget)
	}

	stage := subroundOf(equivocation.First.Vote)

	firstSigned := SignedVote{
		Vote:        firstTarget,
		Signature:   equivocation.First.Signature,
		AuthorityID: equivocation.Identity,
	}
	if err := VerifySignedVote(firstSigned, stage, equivocation.RoundNumber, proof.SetID); err != nil {
		return fmt.Errorf("first vote: %w", err)
	}

	secondSigned := SignedVote{
		Vote:        secondTarget,
		Signature:   equivocation.Second.Signature,
		AuthorityID: equivocation.Identity,
	}
	if err := VerifySignedVote(secondSigned, stage, equivocation.RoundNumber, proof.SetID); err != nil {
		return fmt.Errorf("second vote: %w", err)
	}

	for _, auth := range authorities {
		if auth.Key == equivocation.Identity {
			return nil
		}
	}

	return fmt.Errorf("%w: %s in set %d", ErrVoterNotFound, equivocation.Identity, proof.SetID)
}

// NewEquivocationReport encodes an equivocation proof for submission to the
// runtime. The encoding is deterministic: equal proofs produce equal bytes.
func NewEquivocationReport[V Votes](proof GrandpaEquivocationProof[V]) ([]byte, error) {
	encoded, err := codec.Encode(proof)
	if err != nil {
		return nil, fmt.Errorf("encoding equivocation proof: %w", err)
	}
	return encoded, nil
}

// NewPrevoteEquivocationReport encodes a prevote equivocation proof
func NewPrevoteEquivocationReport(proof GrandpaEquivocationProof[Prevote]) ([]byte, error) {
	return NewEquivocationReport(proof)
}

// NewPrecommitEquivocationReport encodes a precommit equivocation proof
func NewPrecommitEquivocationReport(proof GrandpaEquivocationProof[Precommit]) ([]byte, error) {
	return NewEquivocationReport(proof)
}
