// Package models contains the domain models for the application.
package models

import "strings"

// Participant represents a youth member on the organization's roster.
type Participant struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	GroupSection string `json:"group_section,omitempty"`
}

// DisplayName composes the roster display form "LastName FirstName",
// which is also the base of the name sort key.
func (p *Participant) DisplayName() string {
	return strings.TrimSpace(p.LastName + " " + p.FirstName)
}
