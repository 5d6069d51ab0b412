// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"errors"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// ScheduledChange proposes replacing the current authority set with
// NextAuthorities once Delay more blocks of the chain it was signalled in
// have been finalized.
type ScheduledChange struct {
	NextAuthorities []Authority
	Delay           uint32
}

// ForcedScheduledChange proposes replacing the current authority set with
// NextAuthorities once Delay more blocks have been imported, finalized or
// not. BestFinalizedBlock is the median last-finalized block number observed
// by the voters that signalled the change, a lower bound on what any honest
// voter has already finalized.
type ForcedScheduledChange struct {
	BestFinalizedBlock uint32
	NextAuthorities    []Authority
	Delay              uint32
}

// OnDisabled signals that the authority with the given index should be
// prevented from voting until the next authority set change.
type OnDisabled struct {
	ID uint64
}

// Pause signals that the current authority set should stop voting, Delay
// finalized blocks after the block carrying the signal.
type Pause struct {
	Delay uint32
}

// Resume signals that a paused authority set should start voting again,
// Delay imported blocks after the block carrying the signal.
type Resume struct {
	Delay uint32
}

// GrandpaConsensusDigest is the GRANDPA signal payload carried by a
// consensus digest item tagged with GrandpaEngineID. Exactly one variant is
// set; the leading byte of the encoding identifies it.
type GrandpaConsensusDigest struct {
	IsScheduledChange bool
	AsScheduledChange ScheduledChange

	IsForcedChange bool
	AsForcedChange ForcedScheduledChange

	IsOnDisabled bool
	AsOnDisabled OnDisabled

	IsPause bool
	AsPause Pause

	IsResume bool
	AsResume Resume
}

// Decode reads a GRANDPA consensus digest, dispatching on the variant index
func (d *GrandpaConsensusDigest) Decode(decoder scale.Decoder) error {
	b, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}

	switch b {
	case 1:
		d.IsScheduledChange = true
		return decoder.Decode(&d.AsScheduledChange)
	case 2:
		d.IsForcedChange = true
		return decoder.Decode(&d.AsForcedChange)
	case 3:
		d.IsOnDisabled = true
		return decoder.Decode(&d.AsOnDisabled)
	case 4:
		d.IsPause = true
		return decoder.Decode(&d.AsPause)
	case 5:
		d.IsResume = true
		return decoder.Decode(&d.AsResume)
	}

	return fmt.Errorf("decoding GrandpaConsensusDigest: unknown variant index %d", b)
}

// Encode writes the set variant preceded by its index byte
func (d GrandpaConsensusDigest) Encode(encoder scale.Encoder) error {
	var err1, err2 error
	switch {
	case d.IsScheduledChange:
		err1 = encoder.PushByte(1)
		err2 = encoder.Encode(d.AsScheduledChange)
	case d.IsForcedChange:
		err1 = encoder.PushByte(2)
		err2 = encoder.Encode(d.AsForcedChange)
	case d.IsOnDisabled:
		err1 = encoder.PushByte(3)
		err2 = encoder.Encode(d.AsOnDisabled)
	case d.IsPause:
		err1 = encoder.PushByte(4)
		err2 = encoder.Encode(d.AsPause)
	case d.IsResume:
		err1 = encoder.PushByte(5)
		err2 = encoder.Encode(d.AsResume)
	default:
		return errors.New("encoding GrandpaConsensusDigest: no variant set")
	}

	if err1 != nil {
		return err1
	}
	return err2
}

// NewGrandpaConsensusItem wraps a GRANDPA signal into a consensus digest
// item ready to be placed in a block header digest.
func NewGrandpaConsensusItem(digest GrandpaConsensusDigest) (*ConsensusDigest, error) {
	data, err := codec.Encode(digest)
	if err != nil {
		return nil, err
	}

	return &ConsensusDigest{
		ConsensusEngineID: GrandpaEngineID,
		Data:              data,
	}, nil
}
