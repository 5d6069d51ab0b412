// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"fmt"

	"github.com/ChainSafe/go-grandpa/lib/common"
	"github.com/ChainSafe/go-grandpa/lib/crypto/ed25519"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// Subround is the stage of a GRANDPA round a vote is cast in
type Subround byte

const (
	// SubroundPrevote is the first voting stage of a round
	SubroundPrevote Subround = iota
	// SubroundPrecommit is the second voting stage of a round
	SubroundPrecommit
	// SubroundPrimaryProposal is the primary's block proposal at round start
	SubroundPrimaryProposal
)

// String returns the string representation of the subround
func (s Subround) String() string {
	switch s {
	case SubroundPrevote:
		return "prevote"
	case SubroundPrecommit:
		return "precommit"
	case SubroundPrimaryProposal:
		return "primaryProposal"
	}
	return "unknown"
}

// Vote represents a vote for a block with the given hash and number
type Vote struct {
	Hash   common.Hash
	Number uint32
}

// NewVote returns a new Vote given a block hash and number
func NewVote(hash common.Hash, number uint32) *Vote {
	return &Vote{
		Hash:   hash,
		Number: number,
	}
}

// String returns the vote as hash and number
func (v Vote) String() string {
	return fmt.Sprintf("hash=%s number=%d", v.Hash, v.Number)
}

// SignedVote is a vote accompanied by the signature and identity of the
// authority that cast it
type SignedVote struct {
	Vote        Vote
	Signature   ed25519.SignatureBytes
	AuthorityID ed25519.PublicKeyBytes
}

// String returns the SignedVote as a string
func (s SignedVote) String() string {
	return fmt.Sprintf("vote={%s} authorityID=%s", s.Vote, s.AuthorityID)
}

// FullVote is the payload a GRANDPA voter signs: the vote bound to its
// subround, round number and authority set id
type FullVote struct {
	Stage Subround
	Vote  Vote
	Round uint64
	SetID uint64
}

// Encode returns the SCALE encoded FullVote, the exact byte string a voter
// signs
func (f FullVote) Encode() ([]byte, error) {
	return codec.Encode(f)
}

// VerifySignedVote checks that sv.Signature was produced by sv.AuthorityID
// over the FullVote payload built from the vote, stage, round and set id.
// ErrInvalidSignature is returned when the signature does not verify.
func VerifySignedVote(sv SignedVote, stage Subround, round, setID uint64) error {
	msg, err := (FullVote{
		Stage: stage,
		Vote:  sv.Vote,
		Round: round,
		SetID: setID,
	}).Encode()
	if err != nil {
		return fmt.Errorf("encoding full vote: %w", err)
	}

	pk, err := ed25519.NewPublicKey(sv.AuthorityID[:])
	if err != nil {
		return err
	}

	ok, err := pk.Verify(msg, sv.Signature[:])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s by %s for %s in round %d of set %d",
			ErrInvalidSignature, sv.Signature, sv.AuthorityID, stage, round, setID)
	}
	return nil
}
