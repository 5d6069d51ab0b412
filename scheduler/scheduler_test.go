// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scheduler

import (
	"errors"
	"testing"

	"github.com/ChainSafe/go-grandpa/lib/crypto/ed25519"
	"github.com/ChainSafe/go-grandpa/primitives"

	log "github.com/ChainSafe/log15"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

var (
	genesisAuthorities = []primitives.Authority{
		{Key: ed25519.PublicKeyBytes{1}, Weight: 1},
	}
	nextAuthorities = []primitives.Authority{
		{Key: ed25519.PublicKeyBytes{2}, Weight: 1},
	}
	otherAuthorities = []primitives.Authority{
		{Key: ed25519.PublicKeyBytes{3}, Weight: 1},
	}
)

func newTestService(t *testing.T, store SnapshotStore) *Service {
	t.Helper()
	s, err := NewService(&Config{
		Authorities: genesisAuthorities,
		SetID:       0,
		LogLvl:      log.LvlError,
		Store:       store,
	})
	require.NoError(t, err)
	return s
}

func scheduledDigest(t *testing.T, change primitives.ScheduledChange) primitives.Digest {
	t.Helper()
	item, err := primitives.NewGrandpaConsensusItem(primitives.GrandpaConsensusDigest{
		IsScheduledChange: true,
		AsScheduledChange: change,
	})
	require.NoError(t, err)
	return primitives.Digest{item}
}

func forcedDigest(t *testing.T, change primitives.ForcedScheduledChange) primitives.Digest {
	t.Helper()
	item, err := primitives.NewGrandpaConsensusItem(primitives.GrandpaConsensusDigest{
		IsForcedChange: true,
		AsForcedChange: change,
	})
	require.NoError(t, err)
	return primitives.Digest{item}
}

func TestNewService(t *testing.T) {
	s := newTestService(t, nil)
	require.Equal(t, genesisAuthorities, s.Authorities())
	require.Equal(t, uint64(0), s.SetID())
	require.Nil(t, s.Pending())
	require.Nil(t, s.Forced())

	_, err := NewService(&Config{LogLvl: log.LvlError})
	require.ErrorIs(t, err, primitives.ErrInvalidAuthorityList)
}

func TestHandleDigestQueuesChanges(t *testing.T) {
	s := newTestService(t, nil)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           2,
	}))
	require.NoError(t, err)

	pending := s.Pending()
	require.NotNil(t, pending)
	require.Equal(t, uint(5), pending.AnnouncingNumber)
	require.Equal(t, uint32(2), pending.Change.Delay)
	require.Equal(t, nextAuthorities, pending.Change.NextAuthorities)
	require.Nil(t, s.Forced())

	err = s.HandleDigest(6, forcedDigest(t, primitives.ForcedScheduledChange{
		BestFinalizedBlock: 3,
		NextAuthorities:    otherAuthorities,
		Delay:              4,
	}))
	require.NoError(t, err)

	forced := s.Forced()
	require.NotNil(t, forced)
	require.Equal(t, uint(6), forced.AnnouncingNumber)
	require.Equal(t, uint32(4), forced.Change.Delay)
	require.Equal(t, uint(10), forced.EffectiveNumber())
}

func TestHandleDigestSuppressesWhileOutstanding(t *testing.T) {
	s := newTestService(t, nil)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           10,
	}))
	require.NoError(t, err)

	_, err = s.NoteFinalized(6)
	require.NoError(t, err)

	// a second signal is dropped without touching the outstanding change
	err = s.HandleDigest(7, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: otherAuthorities,
		Delay:           1,
	}))
	require.NoError(t, err)

	pending := s.Pending()
	require.Equal(t, uint(5), pending.AnnouncingNumber)
	require.Equal(t, uint32(1), pending.Elapsed)
	require.Equal(t, nextAuthorities, pending.Change.NextAuthorities)
}

func TestHandleDigestRejectsInvalidAuthorityList(t *testing.T) {
	s := newTestService(t, nil)

	duplicated := []primitives.Authority{
		{Key: ed25519.PublicKeyBytes{2}, Weight: 1},
		{Key: ed25519.PublicKeyBytes{2}, Weight: 2},
	}

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: duplicated,
		Delay:           2,
	}))
	require.ErrorIs(t, err, primitives.ErrInvalidAuthorityList)
	require.Nil(t, s.Pending())
}

func TestScheduledChangeActivation(t *testing.T) {
	s := newTestService(t, nil)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           2,
	}))
	require.NoError(t, err)

	// the announcing block does not count towards the delay
	applied, err := s.NoteFinalized(5)
	require.NoError(t, err)
	require.Nil(t, applied)
	require.Equal(t, uint32(0), s.Pending().Elapsed)

	applied, err = s.NoteFinalized(6)
	require.NoError(t, err)
	require.Nil(t, applied)
	require.Equal(t, uint32(1), s.Pending().Elapsed)

	// imported blocks do not advance the scheduled track
	_, err = s.NoteImported(6)
	require.NoError(t, err)
	require.Equal(t, uint32(1), s.Pending().Elapsed)

	applied, err = s.NoteFinalized(7)
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, uint64(1), applied.SetID)
	require.Equal(t, nextAuthorities, applied.Authorities)
	require.Equal(t, uint(7), applied.Number)
	require.Nil(t, applied.Median)

	require.Equal(t, uint64(1), s.SetID())
	require.Equal(t, nextAuthorities, s.Authorities())
	require.Nil(t, s.Pending())
}

func TestScheduledChangeShortDelays(t *testing.T) {
	testCases := []struct {
		name  string
		delay uint32
	}{
		{name: "zero delay activates on the next finalized block", delay: 0},
		{name: "delay of one activates on the next finalized block", delay: 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService(t, nil)

			err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
				NextAuthorities: nextAuthorities,
				Delay:           tc.delay,
			}))
			require.NoError(t, err)

			applied, err := s.NoteFinalized(5)
			require.NoError(t, err)
			require.Nil(t, applied)

			applied, err = s.NoteFinalized(6)
			require.NoError(t, err)
			require.NotNil(t, applied)
			require.Equal(t, uint64(1), applied.SetID)
		})
	}
}

func TestForcedChangeActivation(t *testing.T) {
	s := newTestService(t, nil)

	// a scheduled change expected well after the forced change's median
	err := s.HandleDigest(6, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: otherAuthorities,
		Delay:           10,
	}))
	require.NoError(t, err)

	err = s.HandleDigest(5, forcedDigest(t, primitives.ForcedScheduledChange{
		BestFinalizedBlock: 4,
		NextAuthorities:    nextAuthorities,
		Delay:              3,
	}))
	require.NoError(t, err)

	for _, number := range []uint{5, 6, 7} {
		applied, err := s.NoteImported(number)
		require.NoError(t, err)
		require.Nil(t, applied)
	}

	applied, err := s.NoteImported(8)
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, uint64(1), applied.SetID)
	require.Equal(t, nextAuthorities, applied.Authorities)
	require.Equal(t, uint(8), applied.Number)
	require.NotNil(t, applied.Median)
	require.Equal(t, uint32(4), *applied.Median)

	// activation installs a new set: both queued tracks are gone
	require.Nil(t, s.Forced())
	require.Nil(t, s.Pending())
	require.Equal(t, uint64(1), s.SetID())
	require.Equal(t, nextAuthorities, s.Authorities())
}

func TestForcedChangeWaitsForScheduledDependency(t *testing.T) {
	s := newTestService(t, nil)

	// scheduled change expected at block 3, before the forced change median
	err := s.HandleDigest(2, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           1,
	}))
	require.NoError(t, err)

	err = s.HandleDigest(5, forcedDigest(t, primitives.ForcedScheduledChange{
		BestFinalizedBlock: 10,
		NextAuthorities:    otherAuthorities,
		Delay:              1,
	}))
	require.NoError(t, err)

	_, err = s.NoteImported(5)
	require.NoError(t, err)

	// the forced change is ready but depends on the scheduled one
	_, err = s.NoteImported(6)
	require.ErrorIs(t, err, ErrPendingScheduledChange)
	require.NotNil(t, s.Forced())
	require.NotNil(t, s.Pending())
	require.Equal(t, uint64(0), s.SetID())

	// finalize through the scheduled change, then retry the import
	applied, err := s.NoteFinalized(3)
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, uint64(1), applied.SetID)

	// the forced change expects activation after the finalized block, it survives
	require.NotNil(t, s.Forced())

	applied, err = s.NoteImported(6)
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, uint64(2), applied.SetID)
	require.Equal(t, otherAuthorities, applied.Authorities)
}

func TestScheduledActivationPrunesStaleForced(t *testing.T) {
	t.Run("stale forced change dropped", func(t *testing.T) {
		s := newTestService(t, nil)

		err := s.HandleDigest(2, forcedDigest(t, primitives.ForcedScheduledChange{
			BestFinalizedBlock: 1,
			NextAuthorities:    otherAuthorities,
			Delay:              1,
		}))
		require.NoError(t, err)

		err = s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
			NextAuthorities: nextAuthorities,
			Delay:           1,
		}))
		require.NoError(t, err)

		// forced change expected at block 3, already finalized here
		applied, err := s.NoteFinalized(6)
		require.NoError(t, err)
		require.NotNil(t, applied)
		require.Nil(t, s.Forced())
	})

	t.Run("later forced change survives", func(t *testing.T) {
		s := newTestService(t, nil)

		err := s.HandleDigest(6, forcedDigest(t, primitives.ForcedScheduledChange{
			BestFinalizedBlock: 5,
			NextAuthorities:    otherAuthorities,
			Delay:              5,
		}))
		require.NoError(t, err)

		err = s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
			NextAuthorities: nextAuthorities,
			Delay:           1,
		}))
		require.NoError(t, err)

		// forced change expected at block 11, after the finalized block
		applied, err := s.NoteFinalized(6)
		require.NoError(t, err)
		require.NotNil(t, applied)
		require.NotNil(t, s.Forced())
	})
}

func TestTracksAdvanceIndependently(t *testing.T) {
	s := newTestService(t, nil)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           3,
	}))
	require.NoError(t, err)

	err = s.HandleDigest(5, forcedDigest(t, primitives.ForcedScheduledChange{
		BestFinalizedBlock: 4,
		NextAuthorities:    otherAuthorities,
		Delay:              3,
	}))
	require.NoError(t, err)

	_, err = s.NoteImported(6)
	require.NoError(t, err)
	require.Equal(t, uint32(1), s.Forced().Elapsed)
	require.Equal(t, uint32(0), s.Pending().Elapsed)

	_, err = s.NoteFinalized(6)
	require.NoError(t, err)
	require.Equal(t, uint32(1), s.Forced().Elapsed)
	require.Equal(t, uint32(1), s.Pending().Elapsed)
}

func TestNoteBlockNumbersMonotonic(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.NoteImported(5)
	require.NoError(t, err)
	_, err = s.NoteImported(5)
	require.ErrorIs(t, err, ErrUnorderedBlockNumber)
	_, err = s.NoteImported(4)
	require.ErrorIs(t, err, ErrUnorderedBlockNumber)
	_, err = s.NoteImported(6)
	require.NoError(t, err)

	_, err = s.NoteFinalized(3)
	require.NoError(t, err)
	_, err = s.NoteFinalized(3)
	require.ErrorIs(t, err, ErrUnorderedBlockNumber)
	_, err = s.NoteFinalized(4)
	require.NoError(t, err)
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestService(t, nil)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           2,
	}))
	require.NoError(t, err)
	_, err = s.NoteFinalized(6)
	require.NoError(t, err)
	_, err = s.NoteImported(7)
	require.NoError(t, err)

	snapshot := s.Snapshot()

	restored := newTestService(t, nil)
	err = restored.Restore(snapshot)
	require.NoError(t, err)
	require.Equal(t, snapshot, restored.Snapshot())

	// both services activate identically from here
	expected, err := s.NoteFinalized(7)
	require.NoError(t, err)
	applied, err := restored.NoteFinalized(7)
	require.NoError(t, err)
	require.Equal(t, expected, applied)

	err = restored.Restore(Snapshot{})
	require.ErrorIs(t, err, primitives.ErrInvalidAuthorityList)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestService(t, nil)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           2,
	}))
	require.NoError(t, err)

	snapshot := s.Snapshot()
	snapshot.Authorities[0].Weight = 99
	snapshot.Pending.Change.NextAuthorities[0].Weight = 99

	require.Equal(t, uint64(1), s.Authorities()[0].Weight)
	require.Equal(t, uint64(1), s.Pending().Change.NextAuthorities[0].Weight)
}

func TestSchedulerPersistsSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockSnapshotStore(ctrl)

	// one snapshot per mutation: queueing, noting the announcing block, activation
	store.EXPECT().PersistSnapshot(gomock.Any()).Return(nil).Times(3)

	s := newTestService(t, store)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           1,
	}))
	require.NoError(t, err)
	_, err = s.NoteFinalized(5)
	require.NoError(t, err)

	_, err = s.NoteFinalized(6)
	require.NoError(t, err)

	finalSnapshot := s.Snapshot()
	require.Equal(t, uint64(1), finalSnapshot.SetID)
	require.Nil(t, finalSnapshot.Pending)
}

func TestSchedulerPersistenceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockSnapshotStore(ctrl)

	storeErr := errors.New("disk full")
	store.EXPECT().PersistSnapshot(gomock.Any()).Return(storeErr)

	s := newTestService(t, store)

	err := s.HandleDigest(5, scheduledDigest(t, primitives.ScheduledChange{
		NextAuthorities: nextAuthorities,
		Delay:           1,
	}))
	require.ErrorIs(t, err, storeErr)
	require.ErrorContains(t, err, "persisting scheduler snapshot")
}

func TestHandleDigestWithoutSignalsDoesNotPersist(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockSnapshotStore(ctrl)
	// no PersistSnapshot expectations: a signal-free digest is a no-op

	s := newTestService(t, store)
	err := s.HandleDigest(5, primitives.Digest{})
	require.NoError(t, err)
}
