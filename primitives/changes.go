// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// PendingChange scans a block's digest for a scheduled authority set change.
// It returns the first scheduled change signalled under the GRANDPA engine
// ID, or nil when the digest signals none. When a change is already
// outstanding the digest is not scanned and nil is returned: only one
// scheduled change may be pending at a time, and later signals are deferred
// until the outstanding one is applied.
//
// Items for other consensus engines, GRANDPA signals of other kinds and
// undecodable payloads are skipped.
func PendingChange(digest Digest, outstanding *ScheduledChange) *ScheduledChange {
	if outstanding != nil {
		return nil
	}

	for _, item := range digest.ConsensusItems(GrandpaEngineID) {
		var signal GrandpaConsensusDigest
		if err := codec.Decode(item.Data, &signal); err != nil {
			continue
		}

		if signal.IsScheduledChange {
			change := signal.AsScheduledChange
			return &change
		}
	}

	return nil
}

// ForcedChange scans a block's digest for a forced authority set change. It
// behaves as PendingChange does for scheduled changes: first matching signal
// wins, a nil result means no change, and an outstanding forced change
// suppresses the scan entirely. Forced and scheduled changes are tracked
// independently, so a digest may yield one of each.
func ForcedChange(digest Digest, outstanding *ForcedScheduledChange) *ForcedScheduledChange {
	if outstanding != nil {
		return nil
	}

	for _, item := range digest.ConsensusItems(GrandpaEngineID) {
		var signal GrandpaConsensusDigest
		if err := codec.Decode(item.Data, &signal); err != nil {
			continue
		}

		if signal.IsForcedChange {
			change := signal.AsForcedChange
			return &change
		}
	}

	return nil
}
