package replay

import (
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
)

// newTestClient serves the given namespaces in process.
func newTestClient(t *testing.T, services map[string]any) *rpc.Client {
	t.Helper()

	server := rpc.NewServer()
	for name, svc := range services {
		require.NoError(t, server.RegisterName(name, svc))
	}
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

// recorder keeps decoded events.
type recorder struct {
	events []tracing.Event
}

func (r *recorder) Emit(data []byte) error {
	ev, err := tracing.Decode(data)
	if err != nil {
		return err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []tracing.EventKind {
	kinds := make([]tracing.EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind()
	}
	return kinds
}
