// Package dispatcher routes a parsed command array to a handler, enforcing
// the session mode rules of spec.md §4.5 and the single-mutex concurrency
// discipline of spec.md §5.
package dispatcher

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/metrics"
	"github.com/vivekkdagar/redix/internal/pubsub"
	"github.com/vivekkdagar/redix/internal/replication"
	"github.com/vivekkdagar/redix/internal/resp"
	"github.com/vivekkdagar/redix/internal/session"
)

// cmdContext carries everything a handler needs. inExec is true while
// executing a queued command from EXEC's batch: the three suspension
// commands (BLPOP, XREAD BLOCK, WAIT) consult it to run their non-blocking
// immediate-check fast path instead of parking (spec.md §9 resolution).
type cmdContext struct {
	d      *Dispatcher
	sess   *session.Session
	args   []string
	inExec bool
}

type handlerFunc func(c *cmdContext) resp.Value

type cmdSpec struct {
	name    string
	minArgs int // total argv length including the verb itself
	maxArgs int // -1 means unbounded
	write   bool
	handler handlerFunc
}

// Dispatcher owns the command table and the long-lived singletons every
// handler reaches through it (spec.md §9: "handlers via an explicit context
// parameter rather than ambient globals").
type Dispatcher struct {
	KS       *keyspace.Keyspace
	PubSub   *pubsub.Hub
	Replicas *replication.Registry
	Metrics  *metrics.Registry
	Logger   *zap.Logger

	// ListenPort records the port this process listens on, set once at
	// startup. No handler reads it; the replication client sends its own
	// copy of the port in REPLCONF listening-port.
	ListenPort int

	// ConfigDir and ConfigDBFilename back CONFIG GET dir|dbfilename
	// (spec.md §6); they are set once at startup from the loaded Config and
	// never mutated.
	ConfigDir        string
	ConfigDBFilename string

	// IsReplica reports this process's own role for INFO replication's
	// role: line (spec.md §4.6); true once it was started with
	// --replicaof.
	IsReplica bool

	commands map[string]cmdSpec
}

// New builds a Dispatcher with its full command table wired.
func New(ks *keyspace.Keyspace, ps *pubsub.Hub, repl *replication.Registry, m *metrics.Registry, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{KS: ks, PubSub: ps, Replicas: repl, Metrics: m, Logger: logger}
	d.commands = d.buildTable()
	return d
}

// suspensionCommands bypass Dispatch's pre-lock: their handlers manage the
// keyspace mutex themselves (BLPOP/XREAD park via self-locking Keyspace
// methods; WAIT never takes the keyspace mutex and blocks only on the
// replica registry's own mutex) — spec.md §5's three suspension points.
var suspensionCommands = map[string]bool{
	"BLPOP": true,
	"XREAD": true,
	"WAIT":  true,
}

// replicate is a convenience a suspension-command handler calls directly,
// since those commands are excluded from execute's automatic
// propagate-on-write behavior (a BLPOP that timed out, or a WAIT, must
// never propagate).
func (d *Dispatcher) replicate(args []string) {
	if d.Replicas != nil {
		d.Replicas.Propagate(args)
	}
}

// Dispatch routes one parsed command through the session's current mode. It
// is the single entry point the transport's read loop calls per inbound
// command array.
func (d *Dispatcher) Dispatch(sess *session.Session, args []string) resp.Value {
	if len(args) == 0 {
		return errUnknownCommand("")
	}
	name := strings.ToUpper(args[0])

	switch sess.Mode {
	case session.Subscribed:
		return d.dispatchSubscribed(sess, name, args)
	case session.Queuing:
		return d.dispatchQueuing(sess, name, args)
	default:
		return d.dispatchNormal(sess, name, args)
	}
}

func (d *Dispatcher) dispatchSubscribed(sess *session.Session, name string, args []string) resp.Value {
	switch name {
	case "SUBSCRIBE", "UNSUBSCRIBE", "PING", "QUIT":
		return d.execute(sess, name, args, false)
	default:
		return errSubscribedMode
	}
}

func (d *Dispatcher) dispatchQueuing(sess *session.Session, name string, args []string) resp.Value {
	switch name {
	case "MULTI":
		return errNestedMulti
	case "EXEC":
		return d.execTransaction(sess)
	case "DISCARD":
		sess.ResetTransaction()
		return resp.NewSimple("OK")
	}

	spec, ok := d.commands[name]
	if !ok {
		sess.Errored = true
		return errUnknownCommand(args[0])
	}
	if !arityOK(spec, len(args)) {
		sess.Errored = true
		return errArity(args[0])
	}
	sess.Enqueue(args)
	return resp.NewSimple("QUEUED")
}

func (d *Dispatcher) dispatchNormal(sess *session.Session, name string, args []string) resp.Value {
	switch name {
	case "MULTI":
		sess.EnterQueuing()
		return resp.NewSimple("OK")
	case "EXEC":
		return errExecWithoutMulti
	case "DISCARD":
		return errDiscardWithoutMulti
	}
	return d.execute(sess, name, args, false)
}

// execTransaction runs the whole queued sequence under one continuous
// keyspace lock (spec.md §5, §4.5) and returns an array of each queued
// command's reply, in order.
func (d *Dispatcher) execTransaction(sess *session.Session) resp.Value {
	if sess.Errored {
		sess.ResetTransaction()
		return errExecAbort
	}
	queue := sess.Queue
	sess.ResetTransaction()

	replies := make([]resp.Value, len(queue))
	d.KS.Lock()
	for i, q := range queue {
		replies[i] = d.runHandler(sess, strings.ToUpper(q.Args[0]), q.Args, true)
	}
	d.KS.Unlock()
	return resp.NewArray(replies)
}

// execute runs a single non-transaction command: looks it up, checks arity,
// and dispatches through the locking discipline appropriate to its kind.
func (d *Dispatcher) execute(sess *session.Session, name string, args []string, inExec bool) resp.Value {
	spec, ok := d.commands[name]
	if !ok {
		return errUnknownCommand(args[0])
	}
	if !arityOK(spec, len(args)) {
		return errArity(args[0])
	}

	if d.Metrics != nil {
		d.Metrics.CommandsProcessed.WithLabelValues(strings.ToLower(name)).Inc()
	}

	if suspensionCommands[name] {
		reply := spec.handler(&cmdContext{d: d, sess: sess, args: args, inExec: inExec})
		d.propagateIfWrite(spec, args, reply)
		return reply
	}

	d.KS.Lock()
	reply := spec.handler(&cmdContext{d: d, sess: sess, args: args, inExec: inExec})
	d.propagateIfWrite(spec, args, reply)
	d.KS.Unlock()
	return reply
}

// runHandler is execute's inner step for a command already known valid and
// already running under the caller's own lock (EXEC's batch), skipping the
// per-command lock/unlock execute would otherwise perform.
func (d *Dispatcher) runHandler(sess *session.Session, name string, args []string, inExec bool) resp.Value {
	spec, ok := d.commands[name]
	if !ok {
		return errUnknownCommand(args[0])
	}
	if !arityOK(spec, len(args)) {
		return errArity(args[0])
	}
	if d.Metrics != nil {
		d.Metrics.CommandsProcessed.WithLabelValues(strings.ToLower(name)).Inc()
	}
	reply := spec.handler(&cmdContext{d: d, sess: sess, args: args, inExec: inExec})
	d.propagateIfWrite(spec, args, reply)
	return reply
}

// propagateIfWrite forwards a successfully applied write command to every
// attached replica (spec.md §4.6). Non-write commands, and writes that
// returned an error frame, are never propagated.
func (d *Dispatcher) propagateIfWrite(spec cmdSpec, args []string, reply resp.Value) {
	if !spec.write || d.Replicas == nil {
		return
	}
	if reply.Kind == resp.Error {
		return
	}
	d.Replicas.Propagate(args)
}

func arityOK(spec cmdSpec, argc int) bool {
	if argc < spec.minArgs {
		return false
	}
	if spec.maxArgs >= 0 && argc > spec.maxArgs {
		return false
	}
	return true
}

// buildTable registers every command this server answers, outside the
// three mode-transition verbs (MULTI/EXEC/DISCARD) handled directly in
// Dispatch's per-mode switch. minArgs/maxArgs count the verb itself;
// maxArgs -1 means unbounded. write marks a command for propagation to
// attached replicas once it applies successfully (spec.md §4.6).
func (d *Dispatcher) buildTable() map[string]cmdSpec {
	specs := []cmdSpec{
		// Connection / server (spec.md §6, §7; SPEC_FULL.md §13)
		{name: "PING", minArgs: 1, maxArgs: 2, handler: cmdPing},
		{name: "ECHO", minArgs: 2, maxArgs: 2, handler: cmdEcho},
		{name: "QUIT", minArgs: 1, maxArgs: 1, handler: cmdQuit},
		{name: "HELLO", minArgs: 1, maxArgs: -1, handler: cmdHello},
		{name: "COMMAND", minArgs: 1, maxArgs: -1, handler: cmdCommand},
		{name: "CONFIG", minArgs: 3, maxArgs: 3, handler: cmdConfigGet},
		{name: "INFO", minArgs: 1, maxArgs: 2, handler: cmdInfo},
		{name: "SELECT", minArgs: 2, maxArgs: 2, handler: cmdSelect},

		// Keyspace-wide (spec.md §4.2)
		{name: "DEL", minArgs: 2, maxArgs: -1, write: true, handler: cmdDel},
		{name: "EXISTS", minArgs: 2, maxArgs: -1, handler: cmdExists},
		{name: "TYPE", minArgs: 2, maxArgs: 2, handler: cmdType},
		{name: "KEYS", minArgs: 2, maxArgs: 2, handler: cmdKeys},
		{name: "EXPIRE", minArgs: 3, maxArgs: 3, write: true, handler: cmdExpire},
		{name: "PTTL", minArgs: 2, maxArgs: 2, handler: cmdPTTL},
		{name: "TTL", minArgs: 2, maxArgs: 2, handler: cmdTTL},
		{name: "PERSIST", minArgs: 2, maxArgs: 2, write: true, handler: cmdPersist},

		// Strings (spec.md §4.2)
		{name: "GET", minArgs: 2, maxArgs: 2, handler: cmdGet},
		{name: "SET", minArgs: 3, maxArgs: 5, write: true, handler: cmdSet},
		{name: "INCR", minArgs: 2, maxArgs: 2, write: true, handler: cmdIncr},
		{name: "INCRBY", minArgs: 3, maxArgs: 3, write: true, handler: cmdIncrBy},

		// Lists (spec.md §4.2, §4.3)
		{name: "LPUSH", minArgs: 3, maxArgs: -1, write: true, handler: cmdPush(true)},
		{name: "RPUSH", minArgs: 3, maxArgs: -1, write: true, handler: cmdPush(false)},
		{name: "LPOP", minArgs: 2, maxArgs: 2, write: true, handler: cmdPop(true)},
		{name: "RPOP", minArgs: 2, maxArgs: 2, write: true, handler: cmdPop(false)},
		{name: "LRANGE", minArgs: 4, maxArgs: 4, handler: cmdLRange},
		{name: "LLEN", minArgs: 2, maxArgs: 2, handler: cmdLLen},
		{name: "LINDEX", minArgs: 3, maxArgs: 3, handler: cmdLIndex},
		{name: "LSET", minArgs: 4, maxArgs: 4, write: true, handler: cmdLSet},
		// write:false: a successful pop propagates its own translated
		// LPOP frame (cmdBLPop calls d.replicate directly) rather than the
		// raw BLPOP frame — a replica applying BLPOP verbatim would itself
		// try to block, stalling its apply loop (spec.md §8 convergence).
		{name: "BLPOP", minArgs: 3, maxArgs: -1, handler: cmdBLPop},

		// Streams (spec.md §4.2, §4.3)
		{name: "XADD", minArgs: 5, maxArgs: -1, write: true, handler: cmdXAdd},
		{name: "XRANGE", minArgs: 4, maxArgs: 4, handler: cmdXRange},
		{name: "XLEN", minArgs: 2, maxArgs: 2, handler: cmdXLen},
		{name: "XREAD", minArgs: 4, maxArgs: -1, handler: cmdXRead},

		// Sorted sets (spec.md §4.2)
		{name: "ZADD", minArgs: 4, maxArgs: -1, write: true, handler: cmdZAdd},
		{name: "ZREM", minArgs: 3, maxArgs: -1, write: true, handler: cmdZRem},
		{name: "ZRANK", minArgs: 3, maxArgs: 3, handler: cmdZRank},
		{name: "ZSCORE", minArgs: 3, maxArgs: 3, handler: cmdZScore},
		{name: "ZINCRBY", minArgs: 4, maxArgs: 4, write: true, handler: cmdZIncrBy},
		{name: "ZCARD", minArgs: 2, maxArgs: 2, handler: cmdZCard},
		{name: "ZRANGE", minArgs: 4, maxArgs: 4, handler: cmdZRange},

		// Geospatial (spec.md §4.2)
		{name: "GEOADD", minArgs: 5, maxArgs: -1, write: true, handler: cmdGeoAdd},
		{name: "GEOPOS", minArgs: 3, maxArgs: -1, handler: cmdGeoPos},
		{name: "GEODIST", minArgs: 4, maxArgs: 5, handler: cmdGeoDist},
		{name: "GEOSEARCH", minArgs: 8, maxArgs: 8, handler: cmdGeoSearch},

		// PubSub (spec.md §4.4)
		{name: "SUBSCRIBE", minArgs: 2, maxArgs: -1, handler: cmdSubscribe},
		{name: "UNSUBSCRIBE", minArgs: 1, maxArgs: -1, handler: cmdUnsubscribe},
		{name: "PUBLISH", minArgs: 3, maxArgs: 3, handler: cmdPublish},

		// Replication (spec.md §4.6)
		{name: "REPLCONF", minArgs: 2, maxArgs: -1, handler: cmdReplConf},
		{name: "PSYNC", minArgs: 3, maxArgs: 3, handler: cmdPSync},
		{name: "WAIT", minArgs: 3, maxArgs: 3, handler: cmdWait},
	}

	table := make(map[string]cmdSpec, len(specs))
	for _, s := range specs {
		table[s.name] = s
	}
	return table
}
