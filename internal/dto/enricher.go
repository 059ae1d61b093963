package dto

import (
	"context"
	"fmt"

	"github.com/taskboard/taskboard-server/internal/color"
	"github.com/taskboard/taskboard-server/internal/domain"
)

// Store defines the interface for fetching users during enrichment.
type Store interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
}

// Enricher joins boards with the display data of the users they reference.
//
// Users are fetched in one batch per call. A referenced user that no longer
// exists is rendered with its id and derived avatar color only.
type Enricher struct {
	store Store
}

// NewEnricher creates a new enricher.
func NewEnricher(store Store) *Enricher {
	return &Enricher{store: store}
}

// EnrichBoard denormalizes a single board.
func (e *Enricher) EnrichBoard(ctx context.Context, board *domain.Board) (*Board, error) {
	users, err := e.fetch(ctx, board.UserIDs())
	if err != nil {
		return nil, err
	}
	return build(board, users), nil
}

// EnrichBoards denormalizes boards with a single user lookup for all of them.
func (e *Enricher) EnrichBoards(ctx context.Context, boards []*domain.Board) ([]*Board, error) {
	if len(boards) == 0 {
		return []*Board{}, nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, b := range boards {
		for _, id := range b.UserIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	users, err := e.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*Board, len(boards))
	for i, b := range boards {
		out[i] = build(b, users)
	}
	return out, nil
}

func (e *Enricher) fetch(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	users, err := e.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func build(b *domain.Board, users map[string]*domain.User) *Board {
	out := &Board{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Layout:      domain.Layout{Lists: b.CloneLists()},
		Members:     make([]Member, 0, len(b.Members)),
		CreatedBy:   lookup(users, b.CreatedBy),
		IsPublic:    b.IsPublic,
		IsStarred:   b.IsStarred,
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	for _, m := range b.Members {
		out.Members = append(out.Members, Member{
			User:     lookup(users, m.UserID),
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out
}

func lookup(users map[string]*domain.User, id string) UserSummary {
	if u, ok := users[id]; ok {
		return summarize(u)
	}
	return UserSummary{ID: id, AvatarColor: color.ForUser(id)}
}

func summarize(u *domain.User) UserSummary {
	avatar := u.AvatarColor
	if avatar == "" {
		avatar = color.ForUser(u.ID)
	}
	return UserSummary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		AvatarColor: avatar,
	}
}
