package logging

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// GELFWriter forwards JSON log lines to a Graylog input over UDP.
// Each Write sends one message; send failures never fail the log call.
type GELFWriter struct {
	conn     net.Conn
	hostname string
	service  string
}

// NewGELF dials addr (e.g. "127.0.0.1:12201").
func NewGELF(addr, service string) (*GELFWriter, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}
	return &GELFWriter{conn: conn, hostname: hostname, service: service}, nil
}

// Write implements io.Writer.
func (w *GELFWriter) Write(p []byte) (int, error) {
	payload, err := json.Marshal(gelfMessage(p, w.hostname, w.service, time.Now()))
	if err != nil {
		return len(p), nil
	}
	_, _ = w.conn.Write(payload)
	return len(p), nil
}

// Close releases the UDP socket.
func (w *GELFWriter) Close() error {
	return w.conn.Close()
}

// gelfMessage maps one of our JSON lines onto the GELF 1.1 envelope. Fields of
// the line are carried as additional "_" fields.
func gelfMessage(p []byte, host, service string, now time.Time) map[string]any {
	line := strings.TrimRight(string(p), "\n")
	msg := map[string]any{
		"version":       "1.1",
		"host":          host,
		"short_message": line,
		"timestamp":     float64(now.UnixNano()) / 1e9,
		"level":         6,
		"_service":      service,
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return msg
	}
	if ev, ok := fields["event"].(string); ok && ev != "" {
		msg["short_message"] = ev
	} else if m, ok := fields["msg"].(string); ok && m != "" {
		msg["short_message"] = m
	}
	if fields["level"] == "error" {
		msg["level"] = 3
	}
	for k, v := range fields {
		if k == "ts" || k == "level" {
			continue
		}
		msg["_"+k] = v
	}
	return msg
}
