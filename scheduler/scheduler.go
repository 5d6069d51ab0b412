// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scheduler

import (
	"errors"
	"fmt"
	"os"

	"github.com/ChainSafe/go-grandpa/primitives"

	log "github.com/ChainSafe/log15"
)

var logger = log.New("pkg", "scheduler")

var (
	// ErrUnorderedBlockNumber is returned when a block event does not follow
	// the previous one of its kind in block order.
	ErrUnorderedBlockNumber = errors.New("block number is not greater than the previous one")

	// ErrPendingScheduledChange is returned when a forced change becomes
	// ready while a scheduled change it depends on has not been applied yet.
	ErrPendingScheduledChange = errors.New("a pending scheduled change must be applied before the forced change")
)

// PendingChange is an outstanding scheduled change together with the block
// that announced it and the finalized blocks elapsed since
type PendingChange struct {
	Change           primitives.ScheduledChange
	AnnouncingNumber uint
	Elapsed          uint32
}

// EffectiveNumber returns the expected activation height of the change
func (p *PendingChange) EffectiveNumber() uint {
	return p.AnnouncingNumber + uint(p.Change.Delay)
}

func (p *PendingChange) copy() *PendingChange {
	if p == nil {
		return nil
	}
	c := *p
	c.Change.NextAuthorities = copyAuthorities(p.Change.NextAuthorities)
	return &c
}

// ForcedChange is an outstanding forced change together with the block that
// announced it and the imported blocks elapsed since
type ForcedChange struct {
	Change           primitives.ForcedScheduledChange
	AnnouncingNumber uint
	Elapsed          uint32
}

// EffectiveNumber returns the expected activation height of the change
func (f *ForcedChange) EffectiveNumber() uint {
	return f.AnnouncingNumber + uint(f.Change.Delay)
}

func (f *ForcedChange) copy() *ForcedChange {
	if f == nil {
		return nil
	}
	c := *f
	c.Change.NextAuthorities = copyAuthorities(f.Change.NextAuthorities)
	return &c
}

// AppliedChange is emitted when a change activates: the new authority set,
// its set id, and the block whose processing triggered the activation.
// Median is the median last-finalized block carried by a forced change, nil
// when a scheduled change was applied.
type AppliedChange struct {
	SetID       uint64
	Authorities []primitives.Authority
	Number      uint
	Median      *uint32
}

// Snapshot is the full scheduler state at a point in time
type Snapshot struct {
	SetID         uint64
	Authorities   []primitives.Authority
	Pending       *PendingChange
	Forced        *ForcedChange
	LastImported  *uint
	LastFinalized *uint
}

// Config holds the scheduler configuration
type Config struct {
	Authorities []primitives.Authority
	SetID       uint64
	LogLvl      log.Lvl
	// Store receives a snapshot after every state mutation. May be nil, in
	// which case nothing is persisted.
	Store SnapshotStore
}

// Service negotiates authority set changes from block digests: it tracks at
// most one outstanding scheduled change and at most one outstanding forced
// change, advances their delay counters as blocks are finalized and imported
// respectively, and replaces the authority set once a delay has fully
// elapsed.
//
// The service is not safe for concurrent use. The caller owns it and feeds
// it blocks sequentially in chain order; when one block is both imported and
// finalized in the same processing step, NoteImported is called first so a
// ready forced change activates ahead of a ready scheduled one.
type Service struct {
	authorities []primitives.Authority
	setID       uint64

	pending *PendingChange
	forced  *ForcedChange

	lastImported  *uint
	lastFinalized *uint

	store SnapshotStore
}

// NewService creates the scheduler from the given configuration
func NewService(cfg *Config) (*Service, error) {
	h := log.StreamHandler(os.Stdout, log.TerminalFormat())
	h = log.CallerFileHandler(h)
	logger.SetHandler(log.LvlFilterHandler(cfg.LogLvl, h))

	if err := primitives.ValidateAuthorityList(cfg.Authorities); err != nil {
		return nil, err
	}

	return &Service{
		authorities: copyAuthorities(cfg.Authorities),
		setID:       cfg.SetID,
		store:       cfg.Store,
	}, nil
}

// HandleDigest scans the digest of the block with the given number for
// authority set change signals and queues the changes it finds. Signals
// arriving while a change of the same kind is outstanding are dropped, per
// the extraction rules. A queued change carrying an invalid authority list
// is rejected with an error.
func (s *Service) HandleDigest(number uint, digest primitives.Digest) error {
	var outstandingScheduled *primitives.ScheduledChange
	if s.pending != nil {
		outstandingScheduled = &s.pending.Change
	}

	changed := false
	if change := primitives.PendingChange(digest, outstandingScheduled); change != nil {
		if err := primitives.ValidateAuthorityList(change.NextAuthorities); err != nil {
			return fmt.Errorf("scheduled change at block %d: %w", number, err)
		}

		s.pending = &PendingChange{Change: *change, AnnouncingNumber: number}
		logger.Debug("queued scheduled change", "block", number, "delay", change.Delay)
		changed = true
	}

	var outstandingForced *primitives.ForcedScheduledChange
	if s.forced != nil {
		outstandingForced = &s.forced.Change
	}

	if change := primitives.ForcedChange(digest, outstandingForced); change != nil {
		if err := primitives.ValidateAuthorityList(change.NextAuthorities); err != nil {
			return fmt.Errorf("forced change at block %d: %w", number, err)
		}

		s.forced = &ForcedChange{Change: *change, AnnouncingNumber: number}
		logger.Debug("queued forced change", "block", number,
			"delay", change.Delay, "median last finalized", change.BestFinalizedBlock)
		changed = true
	}

	if !changed {
		return nil
	}
	return s.persist()
}

// NoteImported records that the block with the given number was imported,
// advancing the delay of an outstanding forced change. When the delay has
// fully elapsed the change activates and the new authority set is returned;
// activation clears both tracks since queued changes were made under the
// replaced set. The block that announced a change does not count towards its
// delay, so a zero delay activates on the next imported block.
//
// A forced change whose scheduled-change dependency has not been applied yet
// does not activate: ErrPendingScheduledChange is returned and the state is
// left untouched so the call can be repeated once the scheduled change is
// through.
func (s *Service) NoteImported(number uint) (*AppliedChange, error) {
	if s.lastImported != nil && number <= *s.lastImported {
		return nil, fmt.Errorf("%w: imported block %d, previous %d",
			ErrUnorderedBlockNumber, number, *s.lastImported)
	}

	if s.forced == nil || number <= s.forced.AnnouncingNumber {
		s.setLastImported(number)
		return nil, s.persist()
	}

	if s.forced.Elapsed+1 < s.forced.Change.Delay {
		s.forced.Elapsed++
		s.setLastImported(number)
		return nil, s.persist()
	}

	// the delay has fully elapsed, the change activates at this block
	if s.pending != nil && s.pending.EffectiveNumber() <= uint(s.forced.Change.BestFinalizedBlock) {
		return nil, fmt.Errorf("%w: scheduled change expected at block %d, forced change median is %d",
			ErrPendingScheduledChange, s.pending.EffectiveNumber(), s.forced.Change.BestFinalizedBlock)
	}

	median := s.forced.Change.BestFinalizedBlock
	s.setID++
	s.authorities = copyAuthorities(s.forced.Change.NextAuthorities)
	s.pending = nil
	s.forced = nil
	s.setLastImported(number)

	logger.Info("applying forced authority set change", "block", number,
		"set id", s.setID, "median last finalized", median)

	applied := &AppliedChange{
		SetID:       s.setID,
		Authorities: copyAuthorities(s.authorities),
		Number:      number,
		Median:      &median,
	}
	return applied, s.persist()
}

// NoteFinalized records that the block with the given number was finalized,
// advancing the delay of an outstanding scheduled change. When the delay has
// fully elapsed the change activates and the new authority set is returned.
// The announcing block does not count towards the delay, so a zero delay
// activates on the next finalized block. An outstanding forced change whose
// expected activation height is already finalized was queued under the
// replaced set and is dropped; a later one survives.
func (s *Service) NoteFinalized(number uint) (*AppliedChange, error) {
	if s.lastFinalized != nil && number <= *s.lastFinalized {
		return nil, fmt.Errorf("%w: finalized block %d, previous %d",
			ErrUnorderedBlockNumber, number, *s.lastFinalized)
	}

	if s.pending == nil || number <= s.pending.AnnouncingNumber {
		s.setLastFinalized(number)
		return nil, s.persist()
	}

	if s.pending.Elapsed+1 < s.pending.Change.Delay {
		s.pending.Elapsed++
		s.setLastFinalized(number)
		return nil, s.persist()
	}

	s.setID++
	s.authorities = copyAuthorities(s.pending.Change.NextAuthorities)
	s.pending = nil

	if s.forced != nil && s.forced.EffectiveNumber() <= number {
		s.forced = nil
	}

	s.setLastFinalized(number)

	logger.Info("applying scheduled authority set change", "block", number, "set id", s.setID)

	applied := &AppliedChange{
		SetID:       s.setID,
		Authorities: copyAuthorities(s.authorities),
		Number:      number,
	}
	return applied, s.persist()
}

// Authorities returns the current authority set
func (s *Service) Authorities() []primitives.Authority {
	return copyAuthorities(s.authorities)
}

// SetID returns the id of the current authority set
func (s *Service) SetID() uint64 {
	return s.setID
}

// Pending returns the outstanding scheduled change, nil when the track is idle
func (s *Service) Pending() *PendingChange {
	return s.pending.copy()
}

// Forced returns the outstanding forced change, nil when the track is idle
func (s *Service) Forced() *ForcedChange {
	return s.forced.copy()
}

// Snapshot returns a deep copy of the full scheduler state
func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		SetID:         s.setID,
		Authorities:   copyAuthorities(s.authorities),
		Pending:       s.pending.copy(),
		Forced:        s.forced.copy(),
		LastImported:  copyNumber(s.lastImported),
		LastFinalized: copyNumber(s.lastFinalized),
	}
}

// Restore replaces the scheduler state with the given snapshot
func (s *Service) Restore(snapshot Snapshot) error {
	if err := primitives.ValidateAuthorityList(snapshot.Authorities); err != nil {
		return fmt.Errorf("restoring scheduler snapshot: %w", err)
	}

	s.setID = snapshot.SetID
	s.authorities = copyAuthorities(snapshot.Authorities)
	s.pending = snapshot.Pending.copy()
	s.forced = snapshot.Forced.copy()
	s.lastImported = copyNumber(snapshot.LastImported)
	s.lastFinalized = copyNumber(snapshot.LastFinalized)
	return nil
}

func (s *Service) setLastImported(number uint) {
	n := number
	s.lastImported = &n
}

func (s *Service) setLastFinalized(number uint) {
	n := number
	s.lastFinalized = &n
}

func (s *Service) persist() error {
	if s.store == nil {
		return nil
	}

	if err := s.store.PersistSnapshot(s.Snapshot()); err != nil {
		return fmt.Errorf("persisting scheduler snapshot: %w", err)
	}
	return nil
}

func copyAuthorities(auths []primitives.Authority) []primitives.Authority {
	if auths == nil {
		return nil
	}
	c := make([]primitives.Authority, len(auths))
	copy(c, auths)
	return c
}

func copyNumber(n *uint) *uint {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
