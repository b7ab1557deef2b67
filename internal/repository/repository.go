// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage is the only implementation; services and
// their tests only ever see these interfaces.
package repository

import (
	"context"

	"github.com/sakif/snippetbin/internal/model"
)

// ListOptions filters and pages a snippet listing.
//
// PublicOnly and OwnerID combine with AND. Zero values mean "no filter":
// an empty ListOptions lists every snippet.
type ListOptions struct {
	Limit      int
	Offset     int
	PublicOnly bool
	OwnerID    string
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Count(ctx context.Context, opts ListOptions) (int, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpsertGitHub(ctx context.Context, user *model.User) error
}
