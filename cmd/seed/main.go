// Package main seeds the configured database with demo users and boards.
//
// It reads the same flags and environment as the server, so the data lands
// wherever the server would look for it. Existing demo users are logged in
// rather than recreated.
//
// Usage:
//
//	METADATA_PATH=~/Taskboard/data go run ./cmd/seed
//	go run ./cmd/seed --store sqlite --store-path ./taskboard.db
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/di"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/service"
)

const demoPassword = "password123"

type demoUser struct {
	name  string
	email string
}

var demoUsers = []demoUser{
	{"Ana García", "ana@example.com"},
	{"Luis Pérez", "luis@example.com"},
	{"Marta Ruiz", "marta@example.com"},
}

// demoCards maps list index to card titles.
var demoCards = map[int][]string{
	0: {"Definir alcance", "Diseñar tablero", "Preparar demo"},
	1: {"Implementar API"},
	2: {"Crear repositorio"},
}

func main() {
	injector := di.NewContainer()
	defer func() {
		if err := injector.Shutdown(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	authService := do.MustInvoke[*service.AuthService](injector)
	boardService := do.MustInvoke[*service.BoardService](injector)
	ctx := context.Background()

	ids := make([]string, 0, len(demoUsers))
	for _, u := range demoUsers {
		id, err := ensureUser(ctx, authService, u)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.email, err)
		}
		fmt.Printf("User ready: %s (%s)\n", u.name, id)
		ids = append(ids, id)
	}

	owner := ids[0]
	board, err := boardService.CreateBoard(ctx, owner, service.CreateBoardRequest{
		Title:       "Proyecto demo",
		Description: "Tablero de ejemplo",
	})
	if err != nil {
		log.Fatalf("Failed to create board: %v", err)
	}
	ref := service.Ref{BoardID: board.ID, UserID: owner}

	roles := []domain.Role{domain.RoleAdmin, domain.RoleMember}
	for i, u := range demoUsers[1:] {
		board, err = boardService.AddMember(ctx, ref, service.AddMemberRequest{Email: u.email, Role: roles[i]})
		if err != nil {
			log.Fatalf("Failed to add member %s: %v", u.email, err)
		}
	}

	cards := 0
	for listIndex, titles := range demoCards {
		listID := board.Lists[listIndex].ID
		for _, title := range titles {
			if board, err = boardService.AddCard(ctx, ref, listID, service.AddCardRequest{Title: title}); err != nil {
				log.Fatalf("Failed to add card %q: %v", title, err)
			}
			cards++
		}
	}

	board, err = labelFirstCard(ctx, boardService, ref, board)
	if err != nil {
		log.Fatalf("Failed to label card: %v", err)
	}

	fmt.Printf("\nCreated board %q (%s) with %d members and %d cards\n",
		board.Title, board.ID, len(board.Members), cards)
	fmt.Printf("Log in as any demo user with password %q\n", demoPassword)
}

func ensureUser(ctx context.Context, auth *service.AuthService, u demoUser) (string, error) {
	resp, err := auth.Register(ctx, service.RegisterRequest{Name: u.name, Email: u.email, Password: demoPassword})
	if errors.Is(err, service.ErrEmailTaken) {
		resp, err = auth.Login(ctx, service.LoginRequest{Email: u.email, Password: demoPassword})
	}
	if err != nil {
		return "", err
	}
	return resp.User.ID, nil
}

func labelFirstCard(ctx context.Context, svc *service.BoardService, ref service.Ref, board *dto.Board) (*dto.Board, error) {
	list := board.Lists[0]
	if len(list.Cards) == 0 {
		return board, nil
	}
	return svc.AddLabel(ctx, ref, list.ID, list.Cards[0].ID, service.LabelRequest{Text: "urgente", Color: "red"})
}
