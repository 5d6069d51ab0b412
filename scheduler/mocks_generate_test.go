// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scheduler

//go:generate mockgen -destination=mock_snapshotstore_test.go -package $GOPACKAGE . SnapshotStore
