package tzinstall

import (
	"fmt"

	"github.com/ngrash/go-tzupdate/tzbundle"
)

// Status is the outcome of an operation that did not fail with an error.
type Status int

const (
	// StatusUnknown is the status of a Result returned with an error.
	StatusUnknown Status = iota
	// StatusApplied means the operation changed the installed data.
	StatusApplied
	// StatusRejected means the bundle was well-formed but not acceptable.
	// Installing the same content again will be rejected again.
	StatusRejected
	// StatusNoOp means there was nothing to do.
	StatusNoOp
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusApplied:
		return "applied"
	case StatusRejected:
		return "rejected"
	case StatusNoOp:
		return "noop"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Reason says why a bundle was rejected.
type Reason string

const (
	ReasonMissingEntry        Reason = "missing_entry"
	ReasonBadVersion          Reason = "bad_version"
	ReasonUnsupportedFormat   Reason = "unsupported_format"
	ReasonFormatMismatch      Reason = "format_mismatch"
	ReasonRulesTooOld         Reason = "rules_too_old"
	ReasonInvalidRulesData    Reason = "invalid_rules_data"
	ReasonInconsistentVersion Reason = "inconsistent_version"
)

// Result describes a completed Install or Uninstall. Failures that may
// succeed on retry are returned as errors instead.
type Result struct {
	Status Status
	// Reason and Detail are set for StatusRejected.
	Reason Reason
	Detail string
	// Version is the bundle version, once it has been parsed.
	Version *tzbundle.Version
	// Digest identifies the bundle content of an Install.
	Digest string
}

func (r Result) String() string {
	s := r.Status.String()
	if r.Version != nil {
		s += " " + r.Version.String()
	}
	if r.Status == StatusRejected {
		s += fmt.Sprintf(" (%s: %s)", r.Reason, r.Detail)
	}
	return s
}

func applied(v *tzbundle.Version) Result {
	return Result{Status: StatusApplied, Version: v}
}

func rejected(reason Reason, v *tzbundle.Version, format string, args ...any) Result {
	return Result{
		Status:  StatusRejected,
		Reason:  reason,
		Detail:  fmt.Sprintf(format, args...),
		Version: v,
	}
}
