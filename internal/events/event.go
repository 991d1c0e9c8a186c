// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events distributes membership lifecycle events to connected
// server-sent-event streams.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event types published by the membership service.
const (
	TypeRegistered    = "registered"
	TypeEmailVerified = "email_verified"
	TypeApproved      = "approved"
	TypeAdminGranted  = "admin_granted"
)

// Event is one lifecycle transition, serialized as JSON on the wire.
type Event struct {
	Type     string    `json:"type"`
	MemberID string    `json:"memberId"`
	Name     string    `json:"name"`
	At       time.Time `json:"at"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType, memberID, name string) Event {
	return Event{
		Type:     eventType,
		MemberID: memberID,
		Name:     name,
		At:       time.Now().UTC(),
	}
}

// Format renders the event as an SSE frame. Multiline payloads get a
// "data:" prefix per line as the protocol requires.
func (e Event) Format() string {
	payload, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return FormatFrame(e.Type, string(payload))
}

// FormatFrame formats raw data as an SSE event frame with an optional
// event name.
func FormatFrame(eventName, data string) string {
	var sb strings.Builder

	if eventName != "" {
		sb.WriteString(fmt.Sprintf("event: %s\n", eventName))
	}

	for _, line := range strings.Split(data, "\n") {
		sb.WriteString(fmt.Sprintf("data: %s\n", line))
	}

	sb.WriteString("\n") // empty line marks end of event
	return sb.String()
}

// Heartbeat is an SSE comment that keeps the connection alive.
// Comments (lines starting with :) are ignored by SSE clients.
const Heartbeat = ": heartbeat\n\n"
