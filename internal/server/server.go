package server

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"reactorsched/internal/http10"
	"reactorsched/internal/resp"
	"reactorsched/internal/router"
	"reactorsched/internal/util"
)

var (
	bootTime        = time.Now()
	connectionsSeen uint64
)

func processID() int                { return os.Getpid() }
func uptimeSinceBoot() time.Duration { return time.Since(bootTime) }
func connectionCount() uint64        { return atomic.LoadUint64(&connectionsSeen) }

// statusPayload builds the JSON body for /status: process liveness plus
// whatever the reactor reports about its own queues and tick count.
func statusPayload() string {
	out := map[string]any{
		"pid":         processID(),
		"uptime_ms":   uptimeSinceBoot().Milliseconds(),
		"started_at":  bootTime.UTC().Format(time.RFC3339Nano),
		"connections": connectionCount(),
		"reactor":     router.ReactorSummary(),
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// HandleConn parses a single HTTP/1.0 request off c, dispatches it
// through the router, and writes back a response with trace headers.
// /status is intercepted here rather than in router.Dispatch so the
// router package never needs to import server (it would otherwise form
// an import cycle through ReactorSummary).
func HandleConn(c net.Conn) {
	defer c.Close()

	trace := map[string]string{
		"X-Request-Id": util.NewReqID(),
		"X-Worker-Pid": strconv.Itoa(processID()),
		"Connection":   "close",
	}

	r := bufio.NewReader(c)
	req, err := http10.ParseRequest(r)
	if err != nil {
		http10.WriteErrorJSON(c, 400, "bad_request", err.Error(), trace)
		return
	}

	if req.Method == "GET" {
		if path, _ := http10.SplitTarget(req.Target); path == "/status" {
			http10.WriteJSONH(c, 200, statusPayload(), trace)
			return
		}
	}

	res := router.Dispatch(req.Method, req.Target)
	writeResult(c, res, trace)
}

// writeResult merges the router result's headers over the base trace
// headers (the result wins on overlap) and picks the wire encoding.
func writeResult(c net.Conn, res resp.Result, trace map[string]string) {
	hdrs := make(map[string]string, len(trace)+len(res.Headers))
	for k, v := range trace {
		hdrs[k] = v
	}
	for k, v := range res.Headers {
		hdrs[k] = v
	}

	switch {
	case res.JSON && res.Err != nil:
		http10.WriteErrorJSON(c, res.Status, res.Err.Code, res.Err.Detail, hdrs)
	case res.JSON:
		http10.WriteJSONH(c, res.Status, res.Body, hdrs)
	default:
		http10.WritePlainH(c, res.Status, res.Body, hdrs)
	}
}

// ListenAndServe accepts connections on addr and serves each on its own
// goroutine until Accept reports an error, which it returns.
func ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			slog.Default().Info("listener stopped accepting connections", "addr", addr, "error", err)
			return err
		}
		atomic.AddUint64(&connectionsSeen, 1)
		go HandleConn(conn)
	}
}
