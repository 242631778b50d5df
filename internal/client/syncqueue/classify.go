package syncqueue

import (
	"errors"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/domain"
)

// Class is what a replay outcome means for the queued operation.
type Class int

const (
	// Done: the remote store has the change; drop the op.
	Done Class = iota
	// Retryable: keep the op and stop draining; a later drain tries again.
	Retryable
	// Fatal: the session is invalid; keep the op and stop until re-auth.
	Fatal
	// Permanent: the remote store will never accept the op; discard it.
	Permanent
)

func (c Class) String() string {
	switch c {
	case Done:
		return "done"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	case Permanent:
		return "permanent"
	}
	return "unknown"
}

// Classify maps the result of replaying op to a Class. Errors it does not
// recognise are retryable.
func Classify(op *models.PendingOperation, err error) Class {
	switch {
	case err == nil:
		return Done
	case errors.Is(err, client.ErrNotFound) && op.Kind == models.OpDelete:
		return Done
	case errors.Is(err, client.ErrUnauthorized):
		return Fatal
	case errors.Is(err, client.ErrInvalidArgument),
		errors.Is(err, client.ErrPermissionDenied),
		errors.Is(err, client.ErrConflict),
		errors.Is(err, client.ErrNotFound),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrUnknownCollection),
		errors.Is(err, errUnknownKind):
		return Permanent
	default:
		return Retryable
	}
}
