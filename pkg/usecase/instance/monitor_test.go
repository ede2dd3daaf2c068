package instance_test

import (
	"context"
	"testing"
	"time"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/evoctl/evoctl/pkg/usecase/instance"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func waitUseCase(gateway adapter.Gateway, timeout time.Duration) *instance.UseCase {
	return instance.New(nil, gateway, nil, nil,
		instance.WithWaitTimeout(timeout),
		instance.WithPollInterval(5*time.Millisecond),
	)
}

func TestWaitForConnectionConnects(t *testing.T) {
	polls := 0
	gateway := &mockGateway{
		connectionStatus: func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
			polls++
			if polls < 3 {
				return &adapter.StatusResult{State: adapter.StatePending, Raw: "connecting"}, nil
			}
			return &adapter.StatusResult{State: adapter.StateConnected, Raw: "open"}, nil
		},
	}

	uc := waitUseCase(gateway, time.Second)
	outcome := uc.WaitForConnection(context.Background(), "loja01", "cred")

	gt.Equal(t, outcome.Status, instance.ConnectionConnected)
	gt.Equal(t, polls, 3)
}

func TestWaitForConnectionTimesOut(t *testing.T) {
	gateway := &mockGateway{
		connectionStatus: func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
			return &adapter.StatusResult{State: adapter.StatePending, Raw: "connecting"}, nil
		},
	}

	uc := waitUseCase(gateway, 50*time.Millisecond)
	start := time.Now()
	outcome := uc.WaitForConnection(context.Background(), "loja01", "cred")

	gt.Equal(t, outcome.Status, instance.ConnectionTimedOut)
	gt.Equal(t, time.Since(start) >= 50*time.Millisecond, true)
}

func TestWaitForConnectionExpired(t *testing.T) {
	gateway := &mockGateway{
		connectionStatus: func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
			return &adapter.StatusResult{State: adapter.StateExpired, Raw: "close"}, nil
		},
	}

	uc := waitUseCase(gateway, time.Second)
	outcome := uc.WaitForConnection(context.Background(), "loja01", "cred")

	gt.Equal(t, outcome.Status, instance.ConnectionFailed)
	gt.Equal(t, outcome.Reason, "expired")
}

func TestWaitForConnectionErrorState(t *testing.T) {
	gateway := &mockGateway{
		connectionStatus: func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
			return &adapter.StatusResult{State: adapter.StateError, Raw: "refused"}, nil
		},
	}

	uc := waitUseCase(gateway, time.Second)
	outcome := uc.WaitForConnection(context.Background(), "loja01", "cred")

	gt.Equal(t, outcome.Status, instance.ConnectionFailed)
	gt.Equal(t, outcome.Reason, "refused")
}

func TestWaitForConnectionAbsorbsPollErrors(t *testing.T) {
	polls := 0
	gateway := &mockGateway{
		connectionStatus: func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
			polls++
			if polls < 3 {
				return nil, goerr.New("gateway hiccup")
			}
			return &adapter.StatusResult{State: adapter.StateConnected, Raw: "open"}, nil
		},
	}

	uc := waitUseCase(gateway, time.Second)
	outcome := uc.WaitForConnection(context.Background(), "loja01", "cred")

	gt.Equal(t, outcome.Status, instance.ConnectionConnected)
	gt.Equal(t, polls, 3)
}

func TestWaitForConnectionCancelled(t *testing.T) {
	gateway := &mockGateway{
		connectionStatus: func(ctx context.Context, name, credential string) (*adapter.StatusResult, error) {
			return &adapter.StatusResult{State: adapter.StatePending, Raw: "connecting"}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := waitUseCase(gateway, time.Hour)
	start := time.Now()
	outcome := uc.WaitForConnection(ctx, "loja01", "cred")

	gt.Equal(t, outcome.Status, instance.ConnectionTimedOut)
	gt.Equal(t, time.Since(start) < time.Second, true)
}
