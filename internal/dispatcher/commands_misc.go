package dispatcher

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/vivekkdagar/redix/internal/resp"
)

var startTime = time.Now()

func cmdPing(c *cmdContext) resp.Value {
	if len(c.args) == 2 {
		return resp.NewBulk(c.args[1])
	}
	return resp.NewSimple("PONG")
}

func cmdEcho(c *cmdContext) resp.Value {
	return resp.NewBulk(c.args[1])
}

func cmdQuit(c *cmdContext) resp.Value {
	return resp.NewSimple("OK")
}

// cmdHello and cmdCommand are minimal stubs letting a generic client (e.g.
// redis-cli) complete its startup negotiation without erroring
// (SPEC_FULL.md §13); neither carries protocol semantics beyond that.
func cmdHello(c *cmdContext) resp.Value {
	return resp.NewArray([]resp.Value{
		resp.NewBulk("server"), resp.NewBulk("redix"),
		resp.NewBulk("proto"), resp.NewInt(2),
	})
}

func cmdCommand(c *cmdContext) resp.Value {
	return resp.EmptyArray()
}

// cmdConfigGet implements CONFIG GET dir|dbfilename (spec.md §6); unknown
// parameters return an empty array.
func cmdConfigGet(c *cmdContext) resp.Value {
	if len(c.args) != 3 || !strings.EqualFold(c.args[1], "GET") {
		return errSyntax()
	}
	switch strings.ToLower(c.args[2]) {
	case "dir":
		return resp.NewArray([]resp.Value{resp.NewBulk("dir"), resp.NewBulk(c.d.ConfigDir)})
	case "dbfilename":
		return resp.NewArray([]resp.Value{resp.NewBulk("dbfilename"), resp.NewBulk(c.d.ConfigDBFilename)})
	default:
		return resp.EmptyArray()
	}
}

// cmdInfo implements INFO: the mandated replication section (spec.md §4.6)
// plus server/memory sections (SPEC_FULL.md §13) backed by gopsutil, the
// way real Redis's multi-section INFO reply works.
func cmdInfo(c *cmdContext) resp.Value {
	var b strings.Builder

	b.WriteString("# Server\r\n")
	fmt.Fprintf(&b, "redix_version:1.0.0\r\n")
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(startTime).Seconds()))
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if pct, err := p.CPUPercent(); err == nil {
			fmt.Fprintf(&b, "process_cpu_percent:%.2f\r\n", pct)
		}
	}
	b.WriteString("\r\n# Memory\r\n")
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(&b, "used_memory:%d\r\n", vm.Used)
		fmt.Fprintf(&b, "total_system_memory:%d\r\n", vm.Total)
	}

	b.WriteString("\r\n# Replication\r\n")
	if c.d.Replicas != nil {
		role := "master"
		if c.d.IsReplica {
			role = "slave"
		}
		fmt.Fprintf(&b, "role:%s\r\n", role)
		fmt.Fprintf(&b, "connected_slaves:%d\r\n", c.d.Replicas.Count())
		fmt.Fprintf(&b, "master_replid:%s\r\n", c.d.Replicas.ReplID())
		fmt.Fprintf(&b, "master_repl_offset:%d\r\n", c.d.Replicas.Offset())
	}

	return resp.NewBulk(b.String())
}
