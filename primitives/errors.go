// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import "errors"

var (
	// ErrInvalidAuthorityList is returned when an authority list is empty or
	// contains a duplicate key.
	ErrInvalidAuthorityList = errors.New("invalid authority list")

	// ErrNoVotingWeight is returned when building a voter set whose total
	// voting weight is zero.
	ErrNoVotingWeight = errors.New("voter set has no voting weight")

	// ErrWeightOverflow is returned when the voter weights overflow when summed.
	ErrWeightOverflow = errors.New("voter weights overflow when summed")

	// ErrMalformedProof is returned when the two votes of an equivocation
	// proof target the same block and therefore do not conflict.
	ErrMalformedProof = errors.New("equivocation proof votes do not conflict")

	// ErrInvalidSignature is returned when a vote signature does not verify
	// against the claimed authority.
	ErrInvalidSignature = errors.New("signature is not valid")

	// ErrVoterNotFound is returned when the claimed offender is not part of
	// the authority set a proof is scoped to.
	ErrVoterNotFound = errors.New("voter is not in voter set")

	// ErrInvalidDigestItemType is returned when decoding a digest item with
	// an unknown type byte.
	ErrInvalidDigestItemType = errors.New("invalid digest item type")
)
