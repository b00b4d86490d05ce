// internal/driver/cdp/errors.go
package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiharness/internal/driver"
)

// staleMessages are protocol error fragments meaning the node or its
// execution context is gone, usually because the document was replaced.
var staleMessages = []string{
	"No node with given id",
	"Could not find node with given id",
	"does not belong to the document",
	"Cannot find context with specified id",
	"Execution context was destroyed",
}

// classify maps protocol errors onto the driver sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", driver.ErrStaleElement, err)
		}
	}
	return err
}

// combineContext returns a context carrying the values (and therefore the
// chromedp target) of tabCtx that is also canceled when opCtx is done.
func combineContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)
	stop := context.AfterFunc(opCtx, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
