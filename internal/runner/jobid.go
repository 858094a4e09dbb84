package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxJobIDLength keeps job ids usable as DNS labels.
const MaxJobIDLength = 63

// NewJobID builds "<workflow-id>-<timestamp>-<token>" with underscores in
// the workflow id replaced by hyphens and the decimal point removed from
// the timestamp, shortened to MaxJobIDLength. The timestamp keeps at least
// one fractional digit, so a whole second ends in "0".
func NewJobID(workflowID string, now time.Time, token string) string {
	ts := strconv.FormatFloat(float64(now.UnixMicro())/1e6, 'f', -1, 64)
	if !strings.Contains(ts, ".") {
		ts += ".0"
	}
	id := fmt.Sprintf("%s-%s-%s",
		strings.ReplaceAll(workflowID, "_", "-"),
		strings.ReplaceAll(ts, ".", ""),
		token,
	)
	return ShortenJobID(id)
}

// ShortenJobID drops trailing characters, and any hyphens left at the end,
// until the id fits MaxJobIDLength.
func ShortenJobID(id string) string {
	for len(id) > MaxJobIDLength {
		id = id[:len(id)-1]
		id = strings.TrimRight(id, "-")
	}
	return id
}

func newToken() string {
	return uuid.NewString()
}
