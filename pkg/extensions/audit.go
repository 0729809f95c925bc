// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"sync"
	"time"
)

// AuditEvent represents an operation event for audit logging.
//
// # Event Categories
//
// Events are categorized by type for filtering and alerting:
//   - Authentication: "auth.denied", "auth.granted"
//   - Standards: "standard.build", "standard.delete", "standard.read"
//   - Holdouts: "holdout.create"
//   - Evaluation: "eval.pr", "eval.contrib"
//   - System: "system.start", "system.stop"
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "standard.delete",
//	    Timestamp:    time.Now().UTC(),
//	    UserID:       authInfo.UserID,
//	    Action:       "delete",
//	    ResourceType: "standard",
//	    ResourceID:   "corum",
//	    Outcome:      "success",
//	}
type AuditEvent struct {
	// EventType categorizes the event for filtering and alerting.
	// Format: "category.action" (e.g., "standard.build", "auth.denied")
	EventType string

	// Timestamp is when the event occurred (always use UTC).
	// If zero, implementations should set to time.Now().UTC().
	Timestamp time.Time

	// UserID identifies who performed the action.
	// Use "system" for automated actions, "anonymous" if unknown.
	UserID string

	// Action describes what operation was attempted.
	// Common values: "create", "read", "delete", "build", "evaluate"
	Action string

	// ResourceType is the category of resource involved.
	// Examples: "standard", "holdout", "network", "evaluation"
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	// Examples: "corum", "go.bp"
	ResourceID string

	// Outcome indicates the result of the action.
	// Values: "success", "failure", "blocked", "error"
	Outcome string

	// Metadata holds additional event-specific data.
	//
	// Common metadata keys:
	//   - "error": error message if Outcome is "failure" or "error"
	//   - "ip_address": client IP
	//   - "duration_ms": operation duration
	//   - "pairs": pair count for build events
	Metadata map[string]any
}

// AuditFilter defines criteria for querying audit events.
//
// All fields are optional. Only non-zero values are used as filters,
// and multiple fields are combined with AND logic:
//
//	// Find all denied auth events in the last hour
//	filter := AuditFilter{
//	    EventTypes: []string{"auth.denied"},
//	    StartTime:  time.Now().Add(-time.Hour),
//	    EndTime:    time.Now(),
//	}
//	events, err := auditor.Query(ctx, filter)
type AuditFilter struct {
	// EventTypes limits results to specific event types.
	// If empty, all event types are included.
	EventTypes []string

	// UserID limits results to events from a specific user.
	UserID string

	// StartTime is the earliest event timestamp to include (inclusive).
	// If zero, no lower bound is applied.
	StartTime time.Time

	// EndTime is the latest event timestamp to include (exclusive).
	// If zero, no upper bound is applied.
	EndTime time.Time

	// ResourceType limits results to events involving specific resource types.
	ResourceType string

	// ResourceID limits results to events involving a specific resource.
	ResourceID string

	// Outcome limits results to events with specific outcomes.
	Outcome string

	// Limit is the maximum number of events to return.
	// If zero, implementation-specific default is used.
	Limit int

	// Offset is the number of events to skip (for pagination).
	Offset int
}

// AuditLogger records operation events for compliance and analysis.
//
// Implementations must be safe for concurrent use by multiple
// goroutines. The Log method should be non-blocking or have reasonable
// timeouts to avoid impacting request latency.
//
// The default NopAuditLogger discards all events, which is appropriate
// for local single-user runs. Shared deployments can use
// MemoryAuditLogger or send events to a SIEM system.
type AuditLogger interface {
	// Log records an operation event.
	//
	// Implementations should:
	//  1. Set Timestamp if zero
	//  2. Persist or transmit the event
	//  3. Return quickly (use async if needed)
	Log(ctx context.Context, event AuditEvent) error

	// Query retrieves audit events matching the filter criteria,
	// ordered by Timestamp descending.
	//
	// Note: NopAuditLogger returns an empty slice (no events stored).
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)

	// Flush ensures all buffered events are persisted.
	//
	// Call this before shutdown to prevent event loss. For sync
	// implementations this may be a no-op.
	Flush(ctx context.Context) error
}

// NopAuditLogger is the default audit logger.
//
// It discards all events without recording them.
//
// Thread-safe: This implementation has no mutable state.
type NopAuditLogger struct{}

// Log discards the event without recording it.
func (l *NopAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	return nil
}

// Query returns an empty slice (no events are stored).
func (l *NopAuditLogger) Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	return []AuditEvent{}, nil
}

// Flush is a no-op since nothing is buffered.
func (l *NopAuditLogger) Flush(ctx context.Context) error {
	return nil
}

// Compile-time interface compliance check.
var _ AuditLogger = (*NopAuditLogger)(nil)

// MemoryAuditLogger keeps the most recent events in a bounded
// in-memory buffer.
//
// Suitable for a single flexd instance where an operator wants to
// inspect recent activity without external infrastructure. Events
// beyond the capacity evict the oldest entries.
//
// Thread-safe: all methods may be called concurrently.
type MemoryAuditLogger struct {
	mu       sync.Mutex
	capacity int
	events   []AuditEvent
}

// NewMemoryAuditLogger creates a MemoryAuditLogger holding at most
// capacity events. A non-positive capacity defaults to 1024.
func NewMemoryAuditLogger(capacity int) *MemoryAuditLogger {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryAuditLogger{
		capacity: capacity,
		events:   make([]AuditEvent, 0, capacity),
	}
}

// Log appends the event, evicting the oldest entry when full.
// A zero Timestamp is set to time.Now().UTC().
func (l *MemoryAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) >= l.capacity {
		copy(l.events, l.events[1:])
		l.events = l.events[:len(l.events)-1]
	}
	l.events = append(l.events, event)
	return nil
}

// Query returns events matching the filter, newest first.
func (l *MemoryAuditLogger) Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []AuditEvent
	// Events are stored oldest first; walk backwards for newest-first order.
	for i := len(l.events) - 1; i >= 0; i-- {
		if matchesFilter(l.events[i], filter) {
			matched = append(matched, l.events[i])
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []AuditEvent{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	if matched == nil {
		matched = []AuditEvent{}
	}
	return matched, nil
}

// Flush is a no-op (events are already in memory).
func (l *MemoryAuditLogger) Flush(ctx context.Context) error {
	return nil
}

// Len returns the number of buffered events.
func (l *MemoryAuditLogger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// matchesFilter reports whether event satisfies all non-zero filter fields.
func matchesFilter(event AuditEvent, filter AuditFilter) bool {
	if len(filter.EventTypes) > 0 {
		found := false
		for _, et := range filter.EventTypes {
			if event.EventType == et {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.UserID != "" && event.UserID != filter.UserID {
		return false
	}
	if !filter.StartTime.IsZero() && event.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && !event.Timestamp.Before(filter.EndTime) {
		return false
	}
	if filter.ResourceType != "" && event.ResourceType != filter.ResourceType {
		return false
	}
	if filter.ResourceID != "" && event.ResourceID != filter.ResourceID {
		return false
	}
	if filter.Outcome != "" && event.Outcome != filter.Outcome {
		return false
	}
	return true
}

// Compile-time interface compliance check.
var _ AuditLogger = (*MemoryAuditLogger)(nil)
