// Package service holds the domain services behind the RPC handlers. Every
// operation takes the acting user explicitly. Split and settlement
// mutations commit to the store and then publish a domain event.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/storage"
)

// clock is replaced in tests.
var clock = time.Now

func requireActor(op, actorID string) error {
	if actorID == "" {
		return &errs.PreconditionError{Op: op, Reason: "authentication required", Err: errs.ErrUnauthenticated}
	}
	return nil
}

// requireRegistered returns NotFound for the first ID missing from the
// identity directory.
func requireRegistered(ctx context.Context, store storage.Store, op string, ids ...string) error {
	ids = findNewParticipants(ids, nil)
	if len(ids) == 0 {
		return nil
	}
	found, err := store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("%s: look up users: %w", op, err)
	}
	for _, id := range ids {
		if found[id] == nil {
			return errs.NotFound(op, "user %s does not exist", id)
		}
	}
	return nil
}

// isParticipant checks if the user is in the participants list.
func isParticipant(userID string, participants []string) bool {
	for _, p := range participants {
		if p == userID {
			return true
		}
	}
	return false
}

// findNewParticipants returns participants that are not already in existingMembers.
func findNewParticipants(participants, existingMembers []string) []string {
	memberSet := make(map[string]bool, len(existingMembers))
	for _, m := range existingMembers {
		memberSet[m] = true
	}
	var newOnes []string
	for _, p := range participants {
		if !memberSet[p] {
			memberSet[p] = true
			newOnes = append(newOnes, p)
		}
	}
	return newOnes
}
