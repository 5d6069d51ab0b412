// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"fmt"

	"github.com/ChainSafe/go-grandpa/lib/crypto/ed25519"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// Authority is a GRANDPA voter: an ed25519 public key and its voting weight.
// A zero weight is legal; such an authority is carried in the set but holds
// no voting power.
type Authority struct {
	Key    ed25519.PublicKeyBytes
	Weight uint64
}

// String returns the authority as key and weight
func (a Authority) String() string {
	return fmt.Sprintf("key=%s weight=%d", a.Key, a.Weight)
}

// ValidateAuthorityList checks that the list is non-empty and contains no
// duplicate keys. Zero weights pass.
func ValidateAuthorityList(auths []Authority) error {
	if len(auths) == 0 {
		return fmt.Errorf("%w: list is empty", ErrInvalidAuthorityList)
	}

	seen := make(map[ed25519.PublicKeyBytes]struct{}, len(auths))
	for _, auth := range auths {
		if _, ok := seen[auth.Key]; ok {
			return fmt.Errorf("%w: duplicate key %s", ErrInvalidAuthorityList, auth.Key)
		}
		seen[auth.Key] = struct{}{}
	}
	return nil
}

// EncodeAuthorities returns the SCALE encoding of the authority list
func EncodeAuthorities(auths []Authority) ([]byte, error) {
	return codec.Encode(auths)
}

// DecodeAuthorities decodes a SCALE encoded authority list
func DecodeAuthorities(in []byte) ([]Authority, error) {
	var auths []Authority
	if err := codec.Decode(in, &auths); err != nil {
		return nil, fmt.Errorf("decoding authority list: %w", err)
	}
	return auths, nil
}
