// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import (
	"fmt"

	"github.com/momentics/hioload-lockfree/api"
)

var (
	// ErrQueueClosed indicates the queue has been torn down.
	ErrQueueClosed = fmt.Errorf("queue is closed: %w", api.ErrClosed)

	// ErrNilPool indicates a shared-pool constructor got no pool.
	ErrNilPool = fmt.Errorf("node pool is nil: %w", api.ErrInvalidArgument)
)
