// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/go-grandpa/primitives"
	"github.com/ChainSafe/go-grandpa/scheduler"
	log "github.com/ChainSafe/log15"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

var (
	logger = log.New("pkg", "state")

	genesisSetID = uint64(0)

	grandpaPrefix     = "grandpa"
	authoritiesPrefix = []byte("auth")
	setIDChangePrefix = []byte("change")
	currentSetIDKey   = []byte("setID")
	schedulerStateKey = []byte("sched")
)

// GrandpaState keeps track of the authority sets a chain has gone through,
// the block numbers at which the set ID changed, and the latest scheduler
// snapshot. All entries live under a dedicated database table.
type GrandpaState struct {
	db chaindb.Database
}

var _ scheduler.SnapshotStore = (*GrandpaState)(nil)

// NewGrandpaStateFromGenesis returns a new GrandpaState initialised with the
// genesis authority set under the genesis set ID
func NewGrandpaStateFromGenesis(db chaindb.Database, genesisAuthorities []primitives.Authority) (*GrandpaState, error) {
	grandpaDB := chaindb.NewTable(db, grandpaPrefix)
	s := &GrandpaState{
		db: grandpaDB,
	}

	err := s.SetCurrentSetID(genesisSetID)
	if err != nil {
		return nil, err
	}

	err = s.SetAuthorities(genesisSetID, genesisAuthorities)
	if err != nil {
		return nil, err
	}

	err = s.SetSetIDChangeAtBlock(genesisSetID, 0)
	if err != nil {
		return nil, err
	}

	logger.Info("initialised grandpa state", "setID", genesisSetID, "authorities", len(genesisAuthorities))
	return s, nil
}

// NewGrandpaState returns a new GrandpaState over previously initialised data
func NewGrandpaState(db chaindb.Database) *GrandpaState {
	return &GrandpaState{
		db: chaindb.NewTable(db, grandpaPrefix),
	}
}

func authoritiesKey(setID uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, setID)
	return append(authoritiesPrefix, buf...)
}

func setIDChangeKey(setID uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, setID)
	return append(setIDChangePrefix, buf...)
}

// SetAuthorities sets the authorities for a given setID
func (s *GrandpaState) SetAuthorities(setID uint64, authorities []primitives.Authority) error {
	enc, err := primitives.EncodeAuthorities(authorities)
	if err != nil {
		return err
	}

	return s.db.Put(authoritiesKey(setID), enc)
}

// GetAuthorities returns the authorities for the given setID
func (s *GrandpaState) GetAuthorities(setID uint64) ([]primitives.Authority, error) {
	enc, err := s.db.Get(authoritiesKey(setID))
	if err != nil {
		return nil, err
	}

	return primitives.DecodeAuthorities(enc)
}

// SetCurrentSetID sets the current set ID
func (s *GrandpaState) SetCurrentSetID(setID uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, setID)
	return s.db.Put(currentSetIDKey, buf)
}

// GetCurrentSetID retrieves the current set ID
func (s *GrandpaState) GetCurrentSetID() (uint64, error) {
	id, err := s.db.Get(currentSetIDKey)
	if err != nil {
		return 0, err
	}

	if len(id) < 8 {
		return 0, errors.New("invalid setID")
	}

	return binary.LittleEndian.Uint64(id[:8]), nil
}

// SetNextChange stores the authorities of the next set alongside the block
// number at which the change to them was enacted
func (s *GrandpaState) SetNextChange(authorities []primitives.Authority, number uint) error {
	currSetID, err := s.GetCurrentSetID()
	if err != nil {
		return err
	}

	nextSetID := currSetID + 1
	err = s.SetAuthorities(nextSetID, authorities)
	if err != nil {
		return err
	}

	return s.SetSetIDChangeAtBlock(nextSetID, number)
}

// IncrementSetID increments the current set ID and returns the new value
func (s *GrandpaState) IncrementSetID() (uint64, error) {
	currSetID, err := s.GetCurrentSetID()
	if err != nil {
		return 0, err
	}

	newSetID := currSetID + 1
	err = s.SetCurrentSetID(newSetID)
	if err != nil {
		return 0, err
	}

	logger.Debug("incremented set id", "setID", newSetID)
	return newSetID, nil
}

// SetSetIDChangeAtBlock records that the change to the given set was enacted
// at a certain block
func (s *GrandpaState) SetSetIDChangeAtBlock(setID uint64, number uint) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(number))
	return s.db.Put(setIDChangeKey(setID), buf)
}

// GetSetIDChange returns the block number at which the change to the given
// set was enacted
func (s *GrandpaState) GetSetIDChange(setID uint64) (uint, error) {
	num, err := s.db.Get(setIDChangeKey(setID))
	if err != nil {
		return 0, err
	}

	if len(num) < 8 {
		return 0, errors.New("invalid block number")
	}

	return uint(binary.LittleEndian.Uint64(num[:8])), nil
}

// GetSetIDByBlockNumber returns the set ID that was in effect when the block
// with the given number was produced. A set signs the blocks that come after
// the block at which the change to it was enacted.
func (s *GrandpaState) GetSetIDByBlockNumber(number uint) (uint64, error) {
	setID, err := s.GetCurrentSetID()
	if err != nil {
		return 0, err
	}

	// a change to the next set may be recorded before that set becomes
	// current, walk up to the highest known change first
	for {
		_, err := s.GetSetIDChange(setID + 1)
		if errors.Is(err, chaindb.ErrKeyNotFound) {
			break
		} else if err != nil {
			return 0, err
		}

		setID++
	}

	for setID > genesisSetID {
		enacted, err := s.GetSetIDChange(setID)
		if err != nil {
			return 0, err
		}

		if number > enacted {
			return setID, nil
		}

		setID--
	}

	return genesisSetID, nil
}

// PersistSnapshot stores the scheduler snapshot so that a restarting node can
// resume change negotiation where it left off. It implements
// scheduler.SnapshotStore and overwrites any previously stored snapshot.
func (s *GrandpaState) PersistSnapshot(snapshot scheduler.Snapshot) error {
	stored := storedSnapshot{
		SetID:         snapshot.SetID,
		Authorities:   snapshot.Authorities,
		LastImported:  numberToWire(snapshot.LastImported),
		LastFinalized: numberToWire(snapshot.LastFinalized),
	}

	if snapshot.Pending != nil {
		stored.Pending = &storedPending{
			Change:           snapshot.Pending.Change,
			AnnouncingNumber: uint32(snapshot.Pending.AnnouncingNumber),
			Elapsed:          snapshot.Pending.Elapsed,
		}
	}

	if snapshot.Forced != nil {
		stored.Forced = &storedForced{
			Change:           snapshot.Forced.Change,
			AnnouncingNumber: uint32(snapshot.Forced.AnnouncingNumber),
			Elapsed:          snapshot.Forced.Elapsed,
		}
	}

	enc, err := codec.Encode(stored)
	if err != nil {
		return fmt.Errorf("encoding scheduler snapshot: %w", err)
	}

	return s.db.Put(schedulerStateKey, enc)
}

// LoadSnapshot retrieves the most recently persisted scheduler snapshot. It
// returns chaindb.ErrKeyNotFound if no snapshot has been stored yet.
func (s *GrandpaState) LoadSnapshot() (*scheduler.Snapshot, error) {
	enc, err := s.db.Get(schedulerStateKey)
	if err != nil {
		return nil, err
	}

	var stored storedSnapshot
	err = codec.Decode(enc, &stored)
	if err != nil {
		return nil, fmt.Errorf("decoding scheduler snapshot: %w", err)
	}

	snapshot := &scheduler.Snapshot{
		SetID:         stored.SetID,
		Authorities:   stored.Authorities,
		LastImported:  numberFromWire(stored.LastImported),
		LastFinalized: numberFromWire(stored.LastFinalized),
	}

	if stored.Pending != nil {
		snapshot.Pending = &scheduler.PendingChange{
			Change:           stored.Pending.Change,
			AnnouncingNumber: uint(stored.Pending.AnnouncingNumber),
			Elapsed:          stored.Pending.Elapsed,
		}
	}

	if stored.Forced != nil {
		snapshot.Forced = &scheduler.ForcedChange{
			Change:           stored.Forced.Change,
			AnnouncingNumber: uint(stored.Forced.AnnouncingNumber),
			Elapsed:          stored.Forced.Elapsed,
		}
	}

	return snapshot, nil
}

// storedSnapshot is the database representation of a scheduler snapshot.
// Block numbers are narrowed to uint32 on the wire to match the digest
// delay fields.
type storedSnapshot struct {
	SetID         uint64
	Authorities   []primitives.Authority
	Pending       *storedPending
	Forced        *storedForced
	LastImported  *uint32
	LastFinalized *uint32
}

type storedPending struct {
	Change           primitives.ScheduledChange
	AnnouncingNumber uint32
	Elapsed          uint32
}

type storedForced struct {
	Change           primitives.ForcedScheduledChange
	AnnouncingNumber uint32
	Elapsed          uint32
}

func (s storedSnapshot) Encode(encoder scale.Encoder) error {
	err := encoder.Encode(s.SetID)
	if err != nil {
		return err
	}

	err = encoder.Encode(s.Authorities)
	if err != nil {
		return err
	}

	err = encodeOptional(encoder, s.Pending)
	if err != nil {
		return err
	}

	err = encodeOptional(encoder, s.Forced)
	if err != nil {
		return err
	}

	err = encodeOptional(encoder, s.LastImported)
	if err != nil {
		return err
	}

	return encodeOptional(encoder, s.LastFinalized)
}

func (s *storedSnapshot) Decode(decoder scale.Decoder) error {
	err := decoder.Decode(&s.SetID)
	if err != nil {
		return err
	}

	err = decoder.Decode(&s.Authorities)
	if err != nil {
		return err
	}

	s.Pending, err = decodeOptional[storedPending](decoder)
	if err != nil {
		return err
	}

	s.Forced, err = decodeOptional[storedForced](decoder)
	if err != nil {
		return err
	}

	s.LastImported, err = decodeOptional[uint32](decoder)
	if err != nil {
		return err
	}

	s.LastFinalized, err = decodeOptional[uint32](decoder)
	return err
}

// encodeOptional writes value as a SCALE Option, a presence byte followed by
// the encoded value when non-nil
func encodeOptional[T any](encoder scale.Encoder, value *T) error {
	if value == nil {
		return encoder.PushByte(0)
	}

	err := encoder.PushByte(1)
	if err != nil {
		return err
	}

	return encoder.Encode(*value)
}

func decodeOptional[T any](decoder scale.Decoder) (*T, error) {
	present, err := decoder.ReadOneByte()
	if err != nil {
		return nil, err
	}

	switch present {
	case 0:
		return nil, nil
	case 1:
		var value T
		err = decoder.Decode(&value)
		if err != nil {
			return nil, err
		}

		return &value, nil
	default:
		return nil, fmt.Errorf("unknown option prefix: %d", present)
	}
}

func numberToWire(number *uint) *uint32 {
	if number == nil {
		return nil
	}

	wire := uint32(*number)
	return &wire
}

func numberFromWire(wire *uint32) *uint {
	if wire == nil {
		return nil
	}

	number := uint(*wire)
	return &number
}
