// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"testing"

	"github.com/ChainSafe/go-grandpa/lib/common"
	"github.com/ChainSafe/go-grandpa/lib/crypto/ed25519"

	"github.com/stretchr/testify/require"
)

func authorityKey(t *testing.T, hexKey string) (key ed25519.PublicKeyBytes) {
	t.Helper()
	copy(key[:], common.MustHexToBytes(hexKey))
	return key
}

func TestValidateAuthorityList(t *testing.T) {
	keyA := authorityKey(t, "0xeea1eabcac7d2c8a6459b7322cf997874482bfc3d2ec7a80888a3a7d71410364")
	keyB := authorityKey(t, "0xb64994460e59b30364cad3c92e3df6052f9b0ebbb8f88460c194dc5794d6d717")

	testCases := []struct {
		name        string
		authorities []Authority
		err         error
	}{
		{
			name:        "empty list",
			authorities: []Authority{},
			err:         ErrInvalidAuthorityList,
		},
		{
			name: "duplicate key",
			authorities: []Authority{
				{Key: keyA, Weight: 1},
				{Key: keyB, Weight: 1},
				{Key: keyA, Weight: 2},
			},
			err: ErrInvalidAuthorityList,
		},
		{
			name: "distinct keys",
			authorities: []Authority{
				{Key: keyA, Weight: 1},
				{Key: keyB, Weight: 1},
			},
		},
		{
			name: "zero weight is legal",
			authorities: []Authority{
				{Key: keyA, Weight: 0},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAuthorityList(tc.authorities)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestEncodeDecodeAuthorities(t *testing.T) {
	authorities := []Authority{
		{Key: authorityKey(t, "0xeea1eabcac7d2c8a6459b7322cf997874482bfc3d2ec7a80888a3a7d71410364"), Weight: 0},
		{Key: authorityKey(t, "0xb64994460e59b30364cad3c92e3df6052f9b0ebbb8f88460c194dc5794d6d717"), Weight: 1},
	}

	expected := common.MustHexToBytes("0x08eea1eabcac7d2c8a6459b7322cf997874482bfc3d2ec7a80888a3a7d714103640000000000000000" +
		"b64994460e59b30364cad3c92e3df6052f9b0ebbb8f88460c194dc5794d6d7170100000000000000")

	enc, err := EncodeAuthorities(authorities)
	require.NoError(t, err)
	require.Equal(t, expected, enc)

	decoded, err := DecodeAuthorities(enc)
	require.NoError(t, err)
	require.Equal(t, authorities, decoded)
}

func TestDecodeAuthoritiesBadInput(t *testing.T) {
	_, err := DecodeAuthorities([]byte{8, 1, 2, 3})
	require.Error(t, err)
}
