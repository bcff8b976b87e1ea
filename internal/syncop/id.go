package syncop

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// randomID generates an 8 hex character identifier for a history record,
// the same short-opaque-token idiom internal/jobstore uses for job ids.
func randomID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("syncop: generate id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
