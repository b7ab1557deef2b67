// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, renders pages and redirects
//	Service (Business layer) → enforces ownership and visibility, paginates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept only validated values from the form package (form.ValidSnippet,
// form.ValidRegistration), so there is no path from a request to the database
// that skips validation.
//
// DEPENDENCY INJECTION:
// SnippetService takes a repository.SnippetRepository (interface), NOT a
// *sqlite.DB. In tests we pass an in-memory fake (see snippet_test.go).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/form"
	"github.com/sakif/snippetbin/internal/model"
	"github.com/sakif/snippetbin/internal/repository"
)

// PerPage is the page size of every snippet listing.
const PerPage = 20

// SnippetService handles business logic for snippets.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

// NewSnippetService creates a new SnippetService.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// Create saves a new snippet owned by ownerID.
//
// ownerID is "" for anonymous callers. Anonymous snippets are forced public:
// nobody could ever see a private snippet without an owner.
func (s *SnippetService) Create(ctx context.Context, ownerID string, in form.ValidSnippet) (*model.Snippet, error) {
	if ownerID == "" {
		in = in.WithPublic(true)
	}

	snippet := &model.Snippet{
		Name:   in.Name(),
		Code:   in.Code(),
		Public: in.Public(),
	}
	if ownerID != "" {
		snippet.UserID = &ownerID
	}

	// The repo handles ID generation, timestamps, and SQL.
	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("name", snippet.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("owner", ownerID),
		slog.Bool("public", snippet.Public),
	)

	return snippet, nil
}

// fetch loads a snippet and applies CanAccess.
//
// A snippet the caller may not act on is reported exactly like a missing one,
// so probing ids never reveals that a private snippet exists.
func (s *SnippetService) fetch(ctx context.Context, userID, id string, action Action) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NotFound("snippet", id)
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching snippet %s: %w", id, err)
	}

	if !CanAccess(userID, snippet, action) {
		s.logger.Debug("snippet access denied",
			slog.String("id", id),
			slog.String("user", userID),
			slog.String("action", action.String()),
		)
		return nil, apperror.NotFound("snippet", id)
	}

	return snippet, nil
}

// Get returns a snippet the caller may view.
func (s *SnippetService) Get(ctx context.Context, userID, id string) (*model.Snippet, error) {
	return s.fetch(ctx, userID, id, ActionView)
}

// GetForEdit returns a snippet the caller may edit. Used to render the edit view.
func (s *SnippetService) GetForEdit(ctx context.Context, userID, id string) (*model.Snippet, error) {
	return s.fetch(ctx, userID, id, ActionEdit)
}

// Update overwrites name, code and public flag of a snippet the caller owns.
//
// STRATEGY: "Fetch then update". The fetch is where ownership is checked; the
// write is a single UPDATE. Concurrent edits are last-write-wins.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in form.ValidSnippet) (*model.Snippet, error) {
	snippet, err := s.fetch(ctx, userID, id, ActionEdit)
	if err != nil {
		return nil, err
	}

	snippet.Name = in.Name()
	snippet.Code = in.Code()
	snippet.Public = in.Public()

	if err := s.repo.Update(ctx, snippet); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// deleted between the fetch and the write
			return nil, err
		}
		s.logger.Error("failed to update snippet",
			slog.String("id", snippet.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("owner", userID),
	)

	return snippet, nil
}

// Delete removes a snippet the caller owns.
func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	snippet, err := s.fetch(ctx, userID, id, ActionDelete)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, snippet.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete snippet",
			slog.String("id", snippet.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted",
		slog.String("id", snippet.ID),
		slog.String("owner", userID),
	)
	return nil
}

// ListPublic returns one page of public snippets, newest first.
func (s *SnippetService) ListPublic(ctx context.Context, page int) (*model.SnippetPage, error) {
	return s.list(ctx, repository.ListOptions{PublicOnly: true}, page)
}

// ListOwned returns one page of userID's snippets, public and private.
func (s *SnippetService) ListOwned(ctx context.Context, userID string, page int) (*model.SnippetPage, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("log in to see your snippets")
	}
	return s.list(ctx, repository.ListOptions{OwnerID: userID}, page)
}

// list counts first so an out-of-range page can be clamped to the last one.
//
// Example: 45 snippets, page 9 → 3 pages → page 3, offset 40.
func (s *SnippetService) list(ctx context.Context, opts repository.ListOptions, page int) (*model.SnippetPage, error) {
	total, err := s.repo.Count(ctx, opts)
	if err != nil {
		s.logger.Error("failed to count snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting snippets: %w", err)
	}

	lastPage := (total + PerPage - 1) / PerPage
	if lastPage < 1 {
		lastPage = 1
	}
	if page < 1 {
		page = 1
	}
	if page > lastPage {
		page = lastPage
	}

	opts.Limit = PerPage
	opts.Offset = (page - 1) * PerPage

	snippets, err := s.repo.List(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	return &model.SnippetPage{
		Snippets: snippets,
		Total:    total,
		Page:     page,
		PerPage:  PerPage,
	}, nil
}
