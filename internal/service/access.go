package service

import "github.com/sakif/snippetbin/internal/model"

// Action is something a caller wants to do to a snippet.
type Action int

const (
	ActionView Action = iota
	ActionEdit
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// CanAccess is the single ownership/visibility rule for snippets. Every read
// and write path in SnippetService goes through it.
//
//   - View: the snippet is public, or userID owns it.
//   - Edit, Delete: userID owns it.
//
// userID is "" for anonymous callers. Anonymous snippets have no owner, so
// nobody may edit or delete them.
func CanAccess(userID string, s *model.Snippet, action Action) bool {
	if s == nil {
		return false
	}
	switch action {
	case ActionView:
		return s.Public || s.IsOwnedBy(userID)
	case ActionEdit, ActionDelete:
		return s.IsOwnedBy(userID)
	default:
		return false
	}
}
