// Package failure classifies errors into the kinds the instrument reacts to
// differently: configuration mistakes surface once at setup, unavailable
// resources degrade to silence, transient input is dropped.
package failure

import (
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const (
	KindConfiguration ftag.Kind = "CONFIGURATION"
	KindUnavailable   ftag.Kind = "RESOURCE_UNAVAILABLE"
	KindTransient     ftag.Kind = "TRANSIENT_INPUT"
)

// Configuration tags err as a configuration error. A nil err creates a new
// error from msg.
func Configuration(err error, msg string) error {
	return tag(err, msg, KindConfiguration)
}

// Unavailable tags err as a missing or failed external resource.
func Unavailable(err error, msg string) error {
	return tag(err, msg, KindUnavailable)
}

// Transient tags err as a malformed or out-of-range input.
func Transient(err error, msg string) error {
	return tag(err, msg, KindTransient)
}

func tag(err error, msg string, kind ftag.Kind) error {
	if err == nil {
		err = errors.New(msg)
		return fault.Wrap(err, ftag.With(kind))
	}
	return fault.Wrap(err, fmsg.With(msg), ftag.With(kind))
}

// Is reports whether err carries the given kind.
func Is(err error, kind ftag.Kind) bool {
	if err == nil {
		return false
	}
	return ftag.Get(err) == kind
}
