package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type parsedHTTP struct {
	StatusLine string
	Code       int
	Reason     string
	Headers    map[string]string
	Body       string
}

func parseHTTP(raw string) parsedHTTP {
	parts := strings.SplitN(raw, "\r\n\r\n", 2)
	head := parts[0]
	body := ""
	if len(parts) == 2 {
		body = parts[1]
	}
	lines := strings.Split(head, "\r\n")
	sl := lines[0]

	h := make(map[string]string)
	for _, ln := range lines[1:] {
		if ln == "" {
			continue
		}
		if i := strings.IndexByte(ln, ':'); i >= 0 {
			h[ln[:i]] = strings.TrimSpace(ln[i+1:])
		}
	}
	code, reason := 0, ""
	if fs := strings.Fields(sl); len(fs) >= 3 {
		fmt.Sscanf(fs[1], "%d", &code)
		reason = strings.Join(fs[2:], " ")
	}
	return parsedHTTP{StatusLine: sl, Code: code, Reason: reason, Headers: h, Body: body}
}

// runThroughHandleConn drives HandleConn over an in-memory net.Pipe so
// these tests never bind a real socket.
func runThroughHandleConn(t *testing.T, rawReq string) parsedHTTP {
	t.Helper()

	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		HandleConn(srv)
	}()

	_, err := io.WriteString(client, rawReq)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, client)
	<-done
	return parseHTTP(buf.String())
}

func TestHandleConn_Status_JSON_And_TraceHeaders(t *testing.T) {
	resp := runThroughHandleConn(t, "GET /status HTTP/1.0\r\nUser-Agent: test\r\n\r\n")

	require.Equal(t, 200, resp.Code)
	require.Equal(t, "OK", resp.Reason)
	require.Equal(t, "close", resp.Headers["Connection"])
	require.NotEmpty(t, resp.Headers["X-Request-Id"])
	require.Equal(t, fmt.Sprint(os.Getpid()), resp.Headers["X-Worker-Pid"])
	require.NotEmpty(t, resp.Headers["Date"])
	require.NotEmpty(t, resp.Headers["Server"])

	var obj struct {
		Pid         int64       `json:"pid"`
		UptimeMS    int64       `json:"uptime_ms"`
		StartedAt   string      `json:"started_at"`
		Connections uint64      `json:"connections"`
		Reactor     interface{} `json:"reactor"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &obj))
	require.Greater(t, obj.Pid, int64(0))
	require.GreaterOrEqual(t, obj.UptimeMS, int64(0))
	require.NotEmpty(t, obj.StartedAt)
}

func TestHandleConn_BadProtocol_400_WithErrorJSON(t *testing.T) {
	resp := runThroughHandleConn(t, "GET / HTTP/1.1\r\nHost: example\r\n\r\n")
	require.Equal(t, 400, resp.Code)

	var e struct{ Error, Detail string }
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &e))
	require.Equal(t, "bad_request", e.Error)
	require.Contains(t, e.Detail, "HTTP/1.0")
}

func TestHandleConn_Router_Reverse_PlainOK(t *testing.T) {
	resp := runThroughHandleConn(t, "GET /reverse?text=abcd HTTP/1.0\r\nUser-Agent: test\r\n\r\n")

	require.Equal(t, 200, resp.Code)
	require.Equal(t, "text/plain; charset=utf-8", resp.Headers["Content-Type"])
	require.Equal(t, "dcba\n", resp.Body)
	require.NotEmpty(t, resp.Headers["X-Request-Id"])
	require.Equal(t, "close", resp.Headers["Connection"])
}

func TestHandleConn_BadRequestLine_400(t *testing.T) {
	resp := runThroughHandleConn(t, "GET/foobar HTTP/1.0\r\n\r\n")
	require.Equal(t, 400, resp.Code)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])

	var e struct{ Error, Detail string }
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &e))
	require.Equal(t, "bad_request", e.Error)
}

func TestHandleConn_BadHeaderLine_400(t *testing.T) {
	resp := runThroughHandleConn(t, "GET /status HTTP/1.0\r\nUser-Agent missing-colon\r\n\r\n")
	require.Equal(t, 400, resp.Code)

	var e struct{ Error, Detail string }
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &e))
	require.Equal(t, "bad_request", e.Error)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.Equal(t, "close", resp.Headers["Connection"])
}

func TestHandleConn_NonGET_Method_Routed(t *testing.T) {
	resp := runThroughHandleConn(t, "HEAD /reverse?text=ok HTTP/1.0\r\n\r\n")

	require.Contains(t, []int{400, 404, 200}, resp.Code)
	require.Equal(t, "close", resp.Headers["Connection"])
	require.NotEmpty(t, resp.Headers["X-Request-Id"])

	if resp.Code == 400 {
		var e struct{ Error, Detail string }
		require.NoError(t, json.Unmarshal([]byte(resp.Body), &e))
		require.NotEmpty(t, e.Error)
	}
}

func TestHandleConn_UnknownRoute_404(t *testing.T) {
	resp := runThroughHandleConn(t, "GET /__no_such_route__ HTTP/1.0\r\n\r\n")
	require.Equal(t, 404, resp.Code)
}

func TestHandleConn_Parallel_Status(t *testing.T) {
	const n = 8
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			resp := runThroughHandleConn(t, "GET /status HTTP/1.0\r\n\r\n")
			if resp.Code != 200 || resp.Reason != "OK" {
				errCh <- fmt.Errorf("bad resp: %d %q", resp.Code, resp.Reason)
				return
			}
			errCh <- nil
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}
}

func dialAndRequest(t *testing.T, addr, req string) parsedHTTP {
	t.Helper()
	var conn net.Conn
	var err error
	deadline := time.Now().Add(800 * time.Millisecond)
	for {
		conn, err = net.Dial("tcp", addr)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, req)
	require.NoError(t, err)

	var buf bytes.Buffer
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _ = io.Copy(&buf, conn)
	return parseHTTP(buf.String())
}

func TestListenAndServe_InvalidAddr_ReturnsError(t *testing.T) {
	require.Error(t, ListenAndServe("127.0.0.1:65536"))
}

func TestListenAndServe_StatusAndConnCount(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	go func() { _ = ListenAndServe(addr) }()

	resp1 := dialAndRequest(t, addr, "GET /status HTTP/1.0\r\n\r\n")
	require.Equal(t, 200, resp1.Code)
	var st1 struct {
		Connections uint64 `json:"connections"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp1.Body), &st1))

	resp2 := dialAndRequest(t, addr, "GET /status HTTP/1.0\r\n\r\n")
	require.Equal(t, 200, resp2.Code)
	var st2 struct {
		Connections uint64 `json:"connections"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp2.Body), &st2))
	require.GreaterOrEqual(t, st2.Connections, st1.Connections)

	reverse := dialAndRequest(t, addr, "GET /reverse?text=hey HTTP/1.0\r\n\r\n")
	require.Equal(t, 200, reverse.Code)
	require.Equal(t, "yeh\n", reverse.Body)
}
