// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package primitives

// Runtime call names for the GRANDPA API
const (
	GrandpaAuthorities                 = "GrandpaApi_grandpa_authorities"
	GrandpaPendingChange               = "GrandpaApi_grandpa_pending_change"
	GrandpaForcedChange                = "GrandpaApi_grandpa_forced_change"
	GrandpaPrevoteEquivocationReport   = "GrandpaApi_construct_prevote_equivocation_report_call"
	GrandpaPrecommitEquivocationReport = "GrandpaApi_construct_precommit_equivocation_report_call"
)

// Api is the view of the GRANDPA runtime API used to negotiate authority
// set changes
type Api interface {
	// PendingChange returns the scheduled change signalled by the given
	// digest, if any
	PendingChange(digest Digest) (*ScheduledChange, error)
	// ForcedChange returns the forced change signalled by the given
	// digest, if any
	ForcedChange(digest Digest) (*ForcedScheduledChange, error)
	// Authorities returns the current authority list
	Authorities() ([]Authority, error)
	// ConstructPrevoteEquivocationReport encodes a prevote equivocation
	// proof for submission
	ConstructPrevoteEquivocationReport(proof GrandpaEquivocationProof[Prevote]) ([]byte, error)
	// ConstructPrecommitEquivocationReport encodes a precommit
	// equivocation proof for submission
	ConstructPrecommitEquivocationReport(proof GrandpaEquivocationProof[Precommit]) ([]byte, error)
}

// LocalApi implements Api over the digest scanning and report encoding of
// this package. Authorities are served from a fixed list given at
// construction, standing in for the runtime storage a node would read.
// Outstanding-change suppression is left to the caller: the scan methods
// always report what the digest signals.
type LocalApi struct {
	authorities []Authority
}

var _ Api = (*LocalApi)(nil)

// NewLocalApi returns a LocalApi serving the given authority list
func NewLocalApi(authorities []Authority) (*LocalApi, error) {
	if err := ValidateAuthorityList(authorities); err != nil {
		return nil, err
	}

	return &LocalApi{authorities: authorities}, nil
}

// PendingChange returns the scheduled change signalled by the given digest,
// or nil when it signals none
func (a *LocalApi) PendingChange(digest Digest) (*ScheduledChange, error) {
	return PendingChange(digest, nil), nil
}

// ForcedChange returns the forced change signalled by the given digest, or
// nil when it signals none
func (a *LocalApi) ForcedChange(digest Digest) (*ForcedScheduledChange, error) {
	return ForcedChange(digest, nil), nil
}

// Authorities returns the authority list the api was built with
func (a *LocalApi) Authorities() ([]Authority, error) {
	authorities := make([]Authority, len(a.authorities))
	copy(authorities, a.authorities)
	return authorities, nil
}

// ConstructPrevoteEquivocationReport encodes a prevote equivocation proof
// for submission
func (a *LocalApi) ConstructPrevoteEquivocationReport(
	proof GrandpaEquivocationProof[Prevote]) ([]byte, error) {
	return NewPrevoteEquivocationReport(proof)
}

// ConstructPrecommitEquivocationReport encodes a precommit equivocation
// proof for submission
func (a *LocalApi) ConstructPrecommitEquivocationReport(
	proof GrandpaEquivocationProof[Precommit]) ([]byte, error) {
	return NewPrecommitEquivocationReport(proof)
}
