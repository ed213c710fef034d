// Package content turns stored versions into what editors and the public site
// see, and drives the draft/publish lifecycle on top of the version store.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/model"
)

var contentLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	contentLogger = l
}

// withTimeout bounds one operation. A zero timeout leaves ctx unbounded.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func checkPageID(pageID model.PageID) error {
	if strings.TrimSpace(string(pageID)) == "" {
		return fmt.Errorf("page id is required: %w", model.ErrInvalidArgument)
	}
	return nil
}
