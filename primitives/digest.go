// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"fmt"
	"math/big"

	"github.com/ChainSafe/go-grandpa/lib/common"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// ConsensusEngineID is a 4-character identifier of the consensus engine a
// digest item belongs to
type ConsensusEngineID [4]byte

// ToBytes turns ConsensusEngineID to a byte array
func (h ConsensusEngineID) ToBytes() []byte {
	b := [4]byte(h)
	return b[:]
}

// BabeEngineID is the hard-coded babe ID
var BabeEngineID = ConsensusEngineID{'B', 'A', 'B', 'E'}

// GrandpaEngineID is the hard-coded grandpa ID
var GrandpaEngineID = ConsensusEngineID{'F', 'R', 'N', 'K'}

// digest item type bytes
const (
	ChangesTrieRootDigestType = byte(2)
	ConsensusDigestType       = byte(4)
	SealDigestType            = byte(5)
	PreRuntimeDigestType      = byte(6)
)

// DigestItem is one entry of a block digest. Encode writes the item's type
// byte followed by its payload; Decode assumes the type byte has already
// been consumed, as done by DecodeDigestItem.
type DigestItem interface {
	String() string
	Type() byte
	Encode(encoder scale.Encoder) error
	Decode(decoder scale.Decoder) error
}

// Digest is the ordered list of digest items attached to a block header
type Digest []DigestItem

// Encode writes the digest as a SCALE list of items
func (d Digest) Encode(encoder scale.Encoder) error {
	err := encoder.EncodeUintCompact(*big.NewInt(int64(len(d))))
	if err != nil {
		return err
	}

	for _, item := range d {
		if err := item.Encode(encoder); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a SCALE encoded digest
func (d *Digest) Decode(decoder scale.Decoder) error {
	count, err := decoder.DecodeUintCompact()
	if err != nil {
		return err
	}

	digest := make(Digest, count.Int64())
	for i := range digest {
		item, err := DecodeDigestItem(decoder)
		if err != nil {
			return err
		}
		digest[i] = item
	}

	*d = digest
	return nil
}

// ConsensusItems returns the consensus-typed items of the digest carrying
// the given engine id, in their original order. Items of other types and
// items tagged with a foreign engine are left out.
func (d Digest) ConsensusItems(id ConsensusEngineID) []*ConsensusDigest {
	var items []*ConsensusDigest
	for _, item := range d {
		ci, ok := item.(*ConsensusDigest)
		if !ok || ci.ConsensusEngineID != id {
			continue
		}
		items = append(items, ci)
	}
	return items
}

// DecodeDigestItem reads one digest item, dispatching on its type byte
func DecodeDigestItem(decoder scale.Decoder) (DigestItem, error) {
	typ, err := decoder.ReadOneByte()
	if err != nil {
		return nil, err
	}

	switch typ {
	case ChangesTrieRootDigestType:
		d := new(ChangesTrieRootDigest)
		if err := d.Decode(decoder); err != nil {
			return nil, err
		}
		return d, nil
	case ConsensusDigestType:
		d := new(ConsensusDigest)
		if err := d.Decode(decoder); err != nil {
			return nil, err
		}
		return d, nil
	case SealDigestType:
		d := new(SealDigest)
		if err := d.Decode(decoder); err != nil {
			return nil, err
		}
		return d, nil
	case PreRuntimeDigestType:
		d := new(PreRuntimeDigest)
		if err := d.Decode(decoder); err != nil {
			return nil, err
		}
		return d, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrInvalidDigestItemType, typ)
}

// ChangesTrieRootDigest contains the root of the changes trie at a given block
type ChangesTrieRootDigest struct {
	Hash common.Hash
}

// Type returns the type byte
func (*ChangesTrieRootDigest) Type() byte {
	return ChangesTrieRootDigestType
}

// String returns the digest as a string
func (d *ChangesTrieRootDigest) String() string {
	return fmt.Sprintf("ChangesTrieRootDigest Hash=%s", d.Hash)
}

// Encode writes the type byte and the hash
func (d *ChangesTrieRootDigest) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(ChangesTrieRootDigestType); err != nil {
		return err
	}
	return encoder.Encode(d.Hash)
}

// Decode reads the hash
func (d *ChangesTrieRootDigest) Decode(decoder scale.Decoder) error {
	return decoder.Decode(&d.Hash)
}

// PreRuntimeDigest contains messages from the consensus engines to the runtime
type PreRuntimeDigest struct {
	ConsensusEngineID ConsensusEngineID
	Data              []byte
}

// NewBABEPreRuntimeDigest returns a PreRuntimeDigest with the BABE consensus ID
func NewBABEPreRuntimeDigest(data []byte) *PreRuntimeDigest {
	return &PreRuntimeDigest{
		ConsensusEngineID: BabeEngineID,
		Data:              data,
	}
}

// Type returns the type byte
func (*PreRuntimeDigest) Type() byte {
	return PreRuntimeDigestType
}

// String returns the digest as a string
func (d *PreRuntimeDigest) String() string {
	return fmt.Sprintf("PreRuntimeDigest ConsensusEngineID=%s Data=0x%x", d.ConsensusEngineID.ToBytes(), d.Data)
}

// Encode writes the type byte, the engine id and the payload
func (d *PreRuntimeDigest) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(PreRuntimeDigestType); err != nil {
		return err
	}
	if err := encoder.Encode(d.ConsensusEngineID); err != nil {
		return err
	}
	return encoder.Encode(d.Data)
}

// Decode reads the engine id and the payload
func (d *PreRuntimeDigest) Decode(decoder scale.Decoder) error {
	if err := decoder.Decode(&d.ConsensusEngineID); err != nil {
		return err
	}
	return decoder.Decode(&d.Data)
}

// ConsensusDigest contains messages from the runtime to the consensus engines
type ConsensusDigest struct {
	ConsensusEngineID ConsensusEngineID
	Data              []byte
}

// Type returns the type byte
func (*ConsensusDigest) Type() byte {
	return ConsensusDigestType
}

// String returns the digest as a string
func (d *ConsensusDigest) String() string {
	return fmt.Sprintf("ConsensusDigest ConsensusEngineID=%s Data=0x%x", d.ConsensusEngineID.ToBytes(), d.Data)
}

// Encode writes the type byte, the engine id and the payload
func (d *ConsensusDigest) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(ConsensusDigestType); err != nil {
		return err
	}
	if err := encoder.Encode(d.ConsensusEngineID); err != nil {
		return err
	}
	return encoder.Encode(d.Data)
}

// Decode reads the engine id and the payload
func (d *ConsensusDigest) Decode(decoder scale.Decoder) error {
	if err := decoder.Decode(&d.ConsensusEngineID); err != nil {
		return err
	}
	return decoder.Decode(&d.Data)
}

// SealDigest contains the seal or signature of a block
type SealDigest struct {
	ConsensusEngineID ConsensusEngineID
	Data              []byte
}

// Type returns the type byte
func (*SealDigest) Type() byte {
	return SealDigestType
}

// String returns the digest as a string
func (d *SealDigest) String() string {
	return fmt.Sprintf("SealDigest ConsensusEngineID=%s Data=0x%x", d.ConsensusEngineID.ToBytes(), d.Data)
}

// Encode writes the type byte, the engine id and the payload
func (d *SealDigest) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(SealDigestType); err != nil {
		return err
	}
	if err := encoder.Encode(d.ConsensusEngineID); err != nil {
		return err
	}
	return encoder.Encode(d.Data)
}

// Decode reads the engine id and the payload
func (d *SealDigest) Decode(decoder scale.Decoder) error {
	if err := decoder.Decode(&d.ConsensusEngineID); err != nil {
		return err
	}
	return decoder.Decode(&d.Data)
}
