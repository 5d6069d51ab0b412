// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package crypto

import "errors"

// KeyType is the string name of a supported signing scheme
type KeyType = string

// Ed25519Type is the only scheme GRANDPA authorities sign with
const Ed25519Type KeyType = "ed25519"

// ErrSignatureVerificationFailed is returned when a signature cannot be verified
var ErrSignatureVerificationFailed = errors.New("failed to verify signature")

// Keypair is a public, private key pair for a signing scheme
type Keypair interface {
	Type() KeyType
	Sign(msg []byte) ([]byte, error)
	Public() PublicKey
	Private() PrivateKey
}

// PublicKey is the public half of a Keypair
type PublicKey interface {
	Verify(msg, sig []byte) (bool, error)
	Encode() []byte
	Decode([]byte) error
	Hex() string
}

// PrivateKey is the private half of a Keypair
type PrivateKey interface {
	Sign(msg []byte) ([]byte, error)
	Public() (PublicKey, error)
	Encode() []byte
	Decode([]byte) error
	Hex() string
}
