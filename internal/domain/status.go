// Package domain provides the shared record types of issueflow: issues, their
// candidate solutions, and the execution queues built from bound solutions.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"fmt"

	"github.com/mrz1836/issueflow/internal/constants"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

// Re-export status types from constants so callers can import domain types
// and status types together.
type (
	// IssueStatus represents the stage of an issue in its lifecycle.
	IssueStatus = constants.IssueStatus

	// QueueStatus represents the state of an execution queue.
	QueueStatus = constants.QueueStatus

	// ItemStatus represents the state of a single queue item.
	ItemStatus = constants.ItemStatus
)

// Re-export issue status constants for convenience.
const (
	IssueStatusRegistered = constants.IssueStatusRegistered
	IssueStatusPlanning   = constants.IssueStatusPlanning
	IssueStatusPlanned    = constants.IssueStatusPlanned
	IssueStatusQueued     = constants.IssueStatusQueued
	IssueStatusExecuting  = constants.IssueStatusExecuting
	IssueStatusCompleted  = constants.IssueStatusCompleted
	IssueStatusFailed     = constants.IssueStatusFailed
)

// Re-export queue and item status constants for convenience.
const (
	QueueStatusActive    = constants.QueueStatusActive
	QueueStatusCompleted = constants.QueueStatusCompleted
	QueueStatusFailed    = constants.QueueStatusFailed

	ItemStatusPending   = constants.ItemStatusPending
	ItemStatusExecuting = constants.ItemStatusExecuting
	ItemStatusCompleted = constants.ItemStatusCompleted
	ItemStatusFailed    = constants.ItemStatusFailed
)

// ValidIssueStatuses returns every recognized issue status in lifecycle order.
func ValidIssueStatuses() []IssueStatus {
	return []IssueStatus{
		IssueStatusRegistered,
		IssueStatusPlanning,
		IssueStatusPlanned,
		IssueStatusQueued,
		IssueStatusExecuting,
		IssueStatusCompleted,
		IssueStatusFailed,
	}
}

// ParseIssueStatus converts s into an IssueStatus, rejecting unknown values.
func ParseIssueStatus(s string) (IssueStatus, error) {
	for _, status := range ValidIssueStatuses() {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", flowerrors.ErrInvalidIssueStatus, s)
}

// RequiresBinding reports whether an issue in status must have a bound solution.
func RequiresBinding(status IssueStatus) bool {
	switch status {
	case IssueStatusPlanned, IssueStatusQueued, IssueStatusExecuting,
		IssueStatusCompleted, IssueStatusFailed:
		return true
	case IssueStatusRegistered, IssueStatusPlanning:
		return false
	}
	return false
}

// ValidItemStatuses returns every recognized queue item status.
func ValidItemStatuses() []ItemStatus {
	return []ItemStatus{
		ItemStatusPending,
		ItemStatusExecuting,
		ItemStatusCompleted,
		ItemStatusFailed,
	}
}
