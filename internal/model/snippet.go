// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data: similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet is a named piece of text with an optional owner and a visibility flag.
//
// UserID is a pointer because anonymous snippets have no owner: nil maps to
// NULL in the user_id column. OwnerName is filled by reads that join the users
// table and is never written back.
type Snippet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Public    bool      `json:"public"`
	UserID    *string   `json:"userId,omitempty"`
	OwnerName string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOwnedBy reports whether userID is the snippet's owner.
// Anonymous snippets are owned by nobody, including the anonymous caller.
func (s *Snippet) IsOwnedBy(userID string) bool {
	return s.UserID != nil && userID != "" && *s.UserID == userID
}

// SnippetPage is one page of a listing plus the total number of matching
// snippets across all pages.
type SnippetPage struct {
	Snippets []Snippet `json:"snippets"`
	Total    int       `json:"count"`
	Page     int       `json:"page"`
	PerPage  int       `json:"perPage"`
}

// HasNext reports whether a page after this one exists.
func (p *SnippetPage) HasNext() bool {
	return p.Page*p.PerPage < p.Total
}

// HasPrev reports whether a page before this one exists.
func (p *SnippetPage) HasPrev() bool {
	return p.Page > 1
}
