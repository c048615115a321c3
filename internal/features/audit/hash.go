package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go-regula/internal/database"
)

// GenesisHash is the prevHash of the first entry in every workflow's trail.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// hashedFields fixes the field order of the hashed document. Seq is excluded
// because it is assigned by the store after hashing.
type hashedFields struct {
	ID         string  `json:"id"`
	WorkflowID string  `json:"workflow_id"`
	Action     Action  `json:"action"`
	FromStatus *string `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	ActorID    string  `json:"actor_id"`
	ActorEmail string  `json:"actor_email"`
	ActorRole  string  `json:"actor_role"`
	Comment    *string `json:"comment"`
	StepIndex  *int    `json:"step_index"`
	Timestamp  string  `json:"ts"`
	PrevHash   string  `json:"prev_hash"`
}

// HashEntry returns "sha256:<hex>" over the entry's content and PrevHash.
func HashEntry(e Entry) (string, error) {
	line, err := json.Marshal(hashedFields{
		ID:         e.ID,
		WorkflowID: e.WorkflowID,
		Action:     e.Action,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ActorID:    e.PerformedBy.ID,
		ActorEmail: e.PerformedBy.Email,
		ActorRole:  string(e.PerformedBy.Role),
		Comment:    e.Comment,
		StepIndex:  e.StepIndex,
		Timestamp:  database.FormatTime(e.Timestamp),
		PrevHash:   e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("audit: marshal entry: %w", err)
	}
	return HashLine(line), nil
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// VerifyChain checks entries in storage order. It reports the first entry
// whose link or content hash does not match.
func VerifyChain(workflowID string, entries []Entry) VerifyResult {
	prev := GenesisHash
	for _, e := range entries {
		if e.PrevHash != prev {
			return VerifyResult{
				WorkflowID: workflowID,
				Entries:    len(entries),
				Error:      fmt.Sprintf("broken link: expected prevHash %s, got %s", prev, e.PrevHash),
				BrokenAt:   e.Seq,
				BrokenID:   e.ID,
			}
		}
		want, err := HashEntry(e)
		if err != nil {
			return VerifyResult{WorkflowID: workflowID, Entries: len(entries), Error: err.Error(), BrokenAt: e.Seq, BrokenID: e.ID}
		}
		if e.Hash != want {
			return VerifyResult{
				WorkflowID: workflowID,
				Entries:    len(entries),
				Error:      fmt.Sprintf("content hash mismatch: expected %s, got %s", want, e.Hash),
				BrokenAt:   e.Seq,
				BrokenID:   e.ID,
			}
		}
		prev = e.Hash
	}
	return VerifyResult{Valid: true, Entries: len(entries), WorkflowID: workflowID}
}
