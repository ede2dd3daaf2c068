package instance

import (
	"context"
	"time"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/utils/logging"
)

// ConnectionStatus is the terminal result of a connection wait.
type ConnectionStatus string

const (
	ConnectionConnected ConnectionStatus = "connected"
	ConnectionTimedOut  ConnectionStatus = "timed_out"
	ConnectionFailed    ConnectionStatus = "failed"
)

// ConnectionOutcome reports how the wait ended. Reason is set for failures.
type ConnectionOutcome struct {
	Status ConnectionStatus
	Reason string
}

// WaitForConnection polls the gateway until the instance reports a
// connected state, the wait budget runs out, or the gateway reports a
// terminal state. Transient polling errors are absorbed and retried until
// the deadline. Cancelling the context ends the wait immediately with a
// timeout outcome.
func (u *UseCase) WaitForConnection(ctx context.Context, name, credential string) *ConnectionOutcome {
	logger := logging.From(ctx)

	deadline := time.NewTimer(u.waitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(u.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &ConnectionOutcome{Status: ConnectionTimedOut}

		case <-deadline.C:
			return &ConnectionOutcome{Status: ConnectionTimedOut}

		case <-ticker.C:
			status, err := u.gateway.ConnectionStatus(ctx, name, credential)
			if err != nil {
				logger.Debug("connection poll failed, retrying", "instance", name, "error", err)
				continue
			}

			switch status.State {
			case adapter.StateConnected:
				return &ConnectionOutcome{Status: ConnectionConnected}
			case adapter.StateExpired:
				return &ConnectionOutcome{Status: ConnectionFailed, Reason: "expired"}
			case adapter.StateError:
				return &ConnectionOutcome{Status: ConnectionFailed, Reason: status.Raw}
			case adapter.StatePending:
				// keep polling
			}
		}
	}
}
