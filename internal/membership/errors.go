package membership

import (
	"net/http"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/pkg/util/errorutil"
)

// Workflow errors. Each renders its Message with its HTTPStatus.
var (
	ErrContainerNotFound = errorutil.NewSentinel("CONTAINER_NOT_FOUND", "Container not found.", http.StatusNotFound, "container does not exist")
	ErrAlreadyMember     = errorutil.NewSentinel("ALREADY_MEMBER", "This user is already a member.", http.StatusBadRequest, "membership exists")
	ErrAlreadyPending    = errorutil.NewSentinel("ALREADY_PENDING", "This user is already in the waiting list.", http.StatusBadRequest, "waiting list entry exists")
	ErrNotPending        = errorutil.NewSentinel("NOT_PENDING", "This user is not in the waiting list.", http.StatusNotFound, "no waiting list entry")
	ErrNotMember         = errorutil.NewSentinel("NOT_MEMBER", "This user is not a member.", http.StatusNotFound, "no membership")
	ErrForbidden         = errorutil.NewSentinel("ROLE_TRANSITION_FORBIDDEN", "Forbidden.", http.StatusForbidden, "role transition not allowed from current role")
)

// containerNotFound names the missing container kind while still matching
// ErrContainerNotFound through errors.Is.
func containerNotFound(kind domain.ContainerKind) error {
	message := "Group not found."
	if kind == domain.ContainerEvent {
		message = "Event not found."
	}
	return &errorutil.DomainError{
		Code:       ErrContainerNotFound.Code,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
		Err:        ErrContainerNotFound,
	}
}
