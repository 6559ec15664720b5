package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/pubsub"
	"github.com/vivekkdagar/redix/internal/replication"
	"github.com/vivekkdagar/redix/internal/resp"
	"github.com/vivekkdagar/redix/internal/session"
)

func newTestDispatcher() *Dispatcher {
	return New(keyspace.New(1), pubsub.NewHub(), replication.NewRegistry(), nil, nil)
}

// TestXReadInsideTransactionDoesNotDeadlock guards against XREAD's
// immediate-read path re-locking a keyspace mutex execTransaction already
// holds across the whole MULTI/EXEC batch.
func TestXReadInsideTransactionDoesNotDeadlock(t *testing.T) {
	d := newTestDispatcher()
	sess := session.New()

	require.Equal(t, "OK", d.Dispatch(sess, []string{"MULTI"}).Str)
	require.Equal(t, "QUEUED", d.Dispatch(sess, []string{"XREAD", "STREAMS", "s", "0"}).Str)

	done := make(chan resp.Value, 1)
	go func() { done <- d.Dispatch(sess, []string{"EXEC"}) }()

	select {
	case reply := <-done:
		require.Equal(t, resp.Array, reply.Kind)
		require.Len(t, reply.Array, 1)
		require.Equal(t, resp.Array, reply.Array[0].Kind)
		require.True(t, reply.Array[0].IsNull)
	case <-time.After(2 * time.Second):
		t.Fatal("EXEC containing XREAD deadlocked")
	}
}

// TestBLPopDoesNotDoublePropagate guards against BLPOP being propagated to
// replicas both as its own translated LPOP frame (cmdBLPop's manual
// replicate call) and as the raw BLPOP frame (execute's automatic
// propagate-on-write for any write:true command).
func TestBLPopDoesNotDoublePropagate(t *testing.T) {
	d := newTestDispatcher()
	sess := session.New()

	pushReply := d.Dispatch(sess, []string{"RPUSH", "L", "x"})
	require.Equal(t, resp.Integer, pushReply.Kind)
	before := d.Replicas.Offset()

	reply := d.Dispatch(sess, []string{"BLPOP", "L", "0"})
	require.Equal(t, resp.Array, reply.Kind)
	require.Len(t, reply.Array, 2)

	wantFrame := resp.EncodeCommand([]string{"LPOP", "L"})
	require.Equal(t, before+int64(len(wantFrame)), d.Replicas.Offset())
}
