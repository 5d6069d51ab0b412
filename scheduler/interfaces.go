// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scheduler

// SnapshotStore persists the scheduler state after every mutation so a node
// can resume where it left off
type SnapshotStore interface {
	PersistSnapshot(snapshot Snapshot) error
}
