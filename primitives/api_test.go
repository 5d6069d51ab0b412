// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"testing"

	"github.com/ChainSafe/go-grandpa/lib/common"
	"github.com/ChainSafe/go-grandpa/lib/keystore"

	"github.com/stretchr/testify/require"
)

func TestNewLocalApi(t *testing.T) {
	_, err := NewLocalApi(nil)
	require.ErrorIs(t, err, ErrInvalidAuthorityList)

	kr, err := keystore.NewEd25519Keyring()
	require.NoError(t, err)

	authorities := keyringAuthorities(t, kr)
	api, err := NewLocalApi(authorities)
	require.NoError(t, err)

	got, err := api.Authorities()
	require.NoError(t, err)
	require.Equal(t, authorities, got)
}

func TestLocalApiChangeScanning(t *testing.T) {
	kr, err := keystore.NewEd25519Keyring()
	require.NoError(t, err)

	authorities := keyringAuthorities(t, kr)
	api, err := NewLocalApi(authorities)
	require.NoError(t, err)

	scheduled := ScheduledChange{NextAuthorities: authorities, Delay: 7}
	forced := ForcedScheduledChange{
		BestFinalizedBlock: 30,
		NextAuthorities:    authorities,
		Delay:              2,
	}

	digest := Digest{
		newSignalItem(t, GrandpaConsensusDigest{IsScheduledChange: true, AsScheduledChange: scheduled}),
		newSignalItem(t, GrandpaConsensusDigest{IsForcedChange: true, AsForcedChange: forced}),
	}

	gotScheduled, err := api.PendingChange(digest)
	require.NoError(t, err)
	require.Equal(t, &scheduled, gotScheduled)

	gotForced, err := api.ForcedChange(digest)
	require.NoError(t, err)
	require.Equal(t, &forced, gotForced)

	gotScheduled, err = api.PendingChange(Digest{})
	require.NoError(t, err)
	require.Nil(t, gotScheduled)

	gotForced, err = api.ForcedChange(Digest{})
	require.NoError(t, err)
	require.Nil(t, gotForced)
}

func TestLocalApiEquivocationReports(t *testing.T) {
	kr, err := keystore.NewEd25519Keyring()
	require.NoError(t, err)

	api, err := NewLocalApi(keyringAuthorities(t, kr))
	require.NoError(t, err)

	firstVote := Vote{Hash: common.Hash{0xa}, Number: 10}
	secondVote := Vote{Hash: common.Hash{0xb}, Number: 10}
	proof := prevoteEquivocation(t, kr, 1, 2, firstVote, secondVote)

	report, err := api.ConstructPrevoteEquivocationReport(proof)
	require.NoError(t, err)

	expected, err := NewPrevoteEquivocationReport(proof)
	require.NoError(t, err)
	require.Equal(t, expected, report)

	precommitProof := GrandpaEquivocationProof[Precommit]{
		SetID: 2,
		Round: 1,
		Equivocation: Equivocation[Precommit]{
			RoundNumber: 1,
			Identity:    authorityID(kr.Alice()),
			First: VoteSignature[Precommit]{
				Vote:      Precommit(firstVote),
				Signature: signVote(t, kr.Alice(), SubroundPrecommit, firstVote, 1, 2),
			},
			Second: VoteSignature[Precommit]{
				Vote:      Precommit(secondVote),
				Signature: signVote(t, kr.Alice(), SubroundPrecommit, secondVote, 1, 2),
			},
		},
	}

	precommitReport, err := api.ConstructPrecommitEquivocationReport(precommitProof)
	require.NoError(t, err)
	require.NotEqual(t, report, precommitReport)
}
