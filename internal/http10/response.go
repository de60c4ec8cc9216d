package http10

import (
	"fmt"
	"io"
	"maps"
	"strings"
	"time"
)

// serverBanner identifies this process in the Server response header.
const serverBanner = "reactorsched/1.0"

// writeResponse assembles an HTTP/1.0 response with Date, Content-Length
// and Connection: close, then layers extra (e.g. trace) headers on top.
func writeResponse(w io.Writer, status int, contentType, body string, extra map[string]string) {
	headers := map[string]string{
		"Date":           time.Now().UTC().Format(time.RFC1123),
		"Content-Type":   contentType,
		"Content-Length": fmt.Sprintf("%d", len(body)),
		"Connection":     "close",
		"Server":         serverBanner,
	}
	if extra != nil {
		maps.Copy(headers, extra)
	}

	io.WriteString(w, fmt.Sprintf("HTTP/1.0 %d %s\r\n", status, statusText(status)))
	for k, v := range headers {
		io.WriteString(w, fmt.Sprintf("%s: %s\r\n", k, v))
	}
	io.WriteString(w, "\r\n")
	io.WriteString(w, body)
}

// WritePlainH writes a plain-text response with extra headers layered on.
func WritePlainH(w io.Writer, status int, body string, extra map[string]string) {
	writeResponse(w, status, "text/plain; charset=utf-8", body, extra)
}

// WriteJSONH writes an already-serialized JSON body as the response.
func WriteJSONH(w io.Writer, status int, json string, extra map[string]string) {
	writeResponse(w, status, "application/json", json, extra)
}

// WriteErrorJSON writes the uniform error envelope
// {"error":"<code>","detail":"<detail>"} at the given status.
func WriteErrorJSON(w io.Writer, status int, code, detail string, extra map[string]string) {
	payload := fmt.Sprintf("{\"error\":\"%s\",\"detail\":\"%s\"}", code, escapeJSON(detail))
	WriteJSONH(w, status, payload, extra)
}

// escapeJSON escapes double quotes, backslashes and control characters in
// detail so WriteErrorJSON's hand-built envelope stays valid JSON without
// pulling in encoding/json for one field.
func escapeJSON(s string) string {
	if !strings.ContainsAny(s, "\"\\") && strings.IndexFunc(s, func(r rune) bool { return r < 0x20 }) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r < 0x20:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 409:
		return "Conflict"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "OK"
	}
}
