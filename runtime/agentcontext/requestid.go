package agentcontext

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewRequestID returns a globally unique request identifier, prefixed with
// a normalized label (typically the agent or entry-point name) to keep
// logs, metrics, and traces readable without sacrificing uniqueness. An
// empty prefix yields a bare UUID.
func NewRequestID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", strings.ReplaceAll(prefix, ".", "-"), uuid.NewString())
}
