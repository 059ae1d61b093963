// Command dbinspect prints the boards in a badger database and checks their
// ordering invariants. It opens the database read-only, so the server may keep running.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
)

const (
	boardPrefix = "board:"
	userPrefix  = "user:"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/.taskboard/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	r, err := inspect(db, os.Stdout)
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}
	if r.broken > 0 {
		os.Exit(2)
	}
}

type report struct {
	boards int
	users  int
	lists  int
	cards  int
	broken int
}

func inspect(db *badger.DB, w io.Writer) (report, error) {
	var r report

	fmt.Fprintln(w, "=== Database Inspection ===")
	fmt.Fprintln(w)

	err := db.View(func(txn *badger.Txn) error {
		r.users = countEntities(txn, userPrefix)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(boardPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(boardPrefix)); it.ValidForPrefix([]byte(boardPrefix)); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key[len(boardPrefix):], "idx:") {
				continue
			}

			err := it.Item().Value(func(val []byte) error {
				var b domain.Board
				if err := store.Unmarshal(val, &b); err != nil {
					return err
				}
				r.boards++
				r.lists += len(b.Lists)
				r.cards += b.CardCount()

				problems := check(&b)
				if len(problems) > 0 {
					r.broken++
				}
				printBoard(w, &b, problems)
				return nil
			})
			if err != nil {
				fmt.Fprintf(w, "Error reading board %s: %v\n\n", key, err)
				r.broken++
			}
		}
		return nil
	})
	if err != nil {
		return r, err
	}

	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Users: %d\n", r.users)
	fmt.Fprintf(w, "Boards: %d\n", r.boards)
	fmt.Fprintf(w, "Lists: %d\n", r.lists)
	fmt.Fprintf(w, "Cards: %d\n", r.cards)
	fmt.Fprintf(w, "Boards with problems: %d\n", r.broken)
	if r.boards > 0 {
		fmt.Fprintf(w, "Average cards per board: %.1f\n", float64(r.cards)/float64(r.boards))
	}
	return r, nil
}

func countEntities(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if !strings.HasPrefix(string(it.Item().Key())[len(prefix):], "idx:") {
			n++
		}
	}
	return n
}

// check reports violations of the board's ordering and identity invariants.
func check(b *domain.Board) []string {
	var problems []string
	if !domain.IsDense(b.Lists) {
		problems = append(problems, "list positions are not 0..n-1")
	}
	seen := make(map[string]string)
	for _, l := range b.Lists {
		if !domain.IsDense(l.Cards) {
			problems = append(problems, fmt.Sprintf("card positions in %q are not 0..n-1", l.Title))
		}
		for _, c := range l.Cards {
			if prev, ok := seen[c.ID]; ok {
				problems = append(problems, fmt.Sprintf("card %s appears in %q and %q", c.ID, prev, l.Title))
			}
			seen[c.ID] = l.Title
			for _, label := range c.Labels {
				if label.ID == "" {
					problems = append(problems, fmt.Sprintf("card %s has a label without id", c.ID))
				}
			}
		}
	}
	if b.CreatedBy == "" {
		problems = append(problems, "board has no creator")
	}
	return problems
}

func printBoard(w io.Writer, b *domain.Board, problems []string) {
	fmt.Fprintf(w, "Board: %s\n", b.Title)
	fmt.Fprintf(w, "  ID: %s\n", b.ID)
	fmt.Fprintf(w, "  Version: %d\n", b.Version)
	fmt.Fprintf(w, "  Members: %d\n", len(b.Members))
	for _, l := range b.Lists {
		fmt.Fprintf(w, "    [%d] %s (%d cards)\n", l.Position, l.Title, len(l.Cards))
	}
	for _, p := range problems {
		fmt.Fprintf(w, "  PROBLEM: %s\n", p)
	}
	fmt.Fprintln(w)
}
