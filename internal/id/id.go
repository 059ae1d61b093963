// Package id generates identifiers for stored entities and client-side placeholders.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixBoard = "board"
	PrefixList  = "list"
	PrefixCard  = "card"
	PrefixUser  = "user"
	PrefixToken = "token"

	// tempPrefix marks ids minted by a client before the server confirms the entity.
	tempPrefix = "tmp-"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "board-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Label returns a new label id. Labels are values copied between cards, so
// they use random UUIDs rather than prefixed entity ids.
func Label() string {
	return uuid.NewString()
}

// Temp returns a placeholder id for an entity created optimistically on a client.
func Temp() string {
	return tempPrefix + uuid.NewString()
}

// IsTemp reports whether id was produced by Temp.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}
