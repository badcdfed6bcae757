// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest signals a malformed enqueue/send request. It is raised
// before any state mutation, so no partial insert can exist alongside it.
type ErrInvalidRequest struct {
	Field string
}

func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("invalid request: missing or empty field %q", e.Field)
}

func NewInvalidRequest(field string) error {
	return &ErrInvalidRequest{Field: field}
}

// IsInvalidRequest reports whether err is an ErrInvalidRequest.
func IsInvalidRequest(err error) bool {
	var target *ErrInvalidRequest
	return errors.As(err, &target)
}

// ErrTransportFailure signals a failed delivery attempt against the external
// email API. Recoverable; drives the attempt-count/retry path.
type ErrTransportFailure struct {
	Reason string
}

func (e *ErrTransportFailure) Error() string {
	return fmt.Sprintf("transport failure: %s", e.Reason)
}

func NewTransportFailure(reason string) error {
	return &ErrTransportFailure{Reason: reason}
}

func IsTransportFailure(err error) bool {
	var target *ErrTransportFailure
	return errors.As(err, &target)
}

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

func IsCampaignNotFound(err error) bool {
	var target *ErrCampaignNotFound
	return errors.As(err, &target)
}

// ErrJobNotFound is returned when a queue job lookup misses.
type ErrJobNotFound struct {
	JobID int
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("queue job with ID %d not found", e.JobID)
}

func NewJobNotFound(id int) error {
	return &ErrJobNotFound{JobID: id}
}
