package replication

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vivekkdagar/redix/internal/resp"
)

// Apply applies one propagated command to the replica's local keyspace,
// with replies suppressed (spec.md §4.6). Supplied by the dispatcher so
// this package never needs to import it — the two packages would otherwise
// form a cycle, since Registry is itself wired into the dispatcher's write
// handlers.
type Apply func(args []string) error

// Client is a replica connection to a master: it performs the PSYNC
// handshake, discards the initial RDB snapshot, and then applies the
// open-ended stream of propagated commands.
type Client struct {
	MasterHost    string
	MasterPort    int
	ListeningPort int
	Apply         Apply
	Logger        *zap.Logger

	processedOffset int64
}

// Run dials the master, completes the handshake, and loops applying
// propagated commands until reading from or writing to the connection
// fails. It blocks for the lifetime of the replication link.
func (c *Client) Run() error {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", c.MasterHost, c.MasterPort))
	if err != nil {
		return fmt.Errorf("replication: dial master: %w", err)
	}
	defer conn.Close()

	w := resp.NewWriter(conn)
	r := resp.NewReader(conn)

	if err := c.handshake(w, r); err != nil {
		return fmt.Errorf("replication: handshake: %w", err)
	}

	return c.applyLoop(w, r)
}

func (c *Client) handshake(w *resp.Writer, r *resp.Reader) error {
	steps := [][]string{
		{"PING"},
		{"REPLCONF", "listening-port", strconv.Itoa(c.ListeningPort)},
		{"REPLCONF", "capa", "psync2"},
	}
	for _, cmd := range steps {
		if err := writeCommand(w, cmd); err != nil {
			return err
		}
		if _, err := r.ReadValue(); err != nil {
			return err
		}
	}

	if err := writeCommand(w, []string{"PSYNC", "?", "-1"}); err != nil {
		return err
	}
	// +FULLRESYNC <replid> <offset>
	if _, err := r.ReadValue(); err != nil {
		return err
	}

	// RDB preamble: a bulk frame with length prefix but no trailing CRLF
	// (spec.md §4.6) — read and discard its payload; this server treats an
	// empty snapshot as the baseline state, matching a fresh master.
	n, err := r.ReadRawBulkLen()
	if err != nil {
		return err
	}
	if _, err := r.ReadRaw(n); err != nil {
		return err
	}
	return nil
}

// applyLoop parses propagated RESP command arrays and applies each, tracking
// processedOffset in bytes, and answering REPLCONF GETACK * requests with
// the offset captured before the GETACK frame's own bytes are added
// (spec.md §4.6).
func (c *Client) applyLoop(w *resp.Writer, r *resp.Reader) error {
	for {
		args, err := r.ReadCommand()
		if err != nil {
			return err
		}
		frameLen := int64(len(resp.EncodeCommand(args)))

		if len(args) >= 2 && strings.EqualFold(args[0], "REPLCONF") && strings.EqualFold(args[1], "GETACK") {
			ackOffset := c.processedOffset
			c.processedOffset += frameLen
			if err := writeCommand(w, []string{"REPLCONF", "ACK", strconv.FormatInt(ackOffset, 10)}); err != nil {
				return err
			}
			continue
		}

		if err := c.Apply(args); err != nil && c.Logger != nil {
			c.Logger.Warn("replica: command application failed", zap.Strings("args", args), zap.Error(err))
		}
		c.processedOffset += frameLen
	}
}

func writeCommand(w *resp.Writer, args []string) error {
	vals := make([]resp.Value, len(args))
	for i, a := range args {
		vals[i] = resp.NewBulk(a)
	}
	if err := w.WriteValue(resp.NewArray(vals)); err != nil {
		return err
	}
	return w.Flush()
}

// ProcessedOffset returns the replica's current applied-bytes offset.
func (c *Client) ProcessedOffset() int64 { return c.processedOffset }
