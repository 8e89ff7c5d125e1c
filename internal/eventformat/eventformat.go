// Package eventformat renders SSE wire frames from an event name and payload.
//
// Formatting is pure and deliberately permissive: the controller that
// supplies name/data is trusted, so no validation or escaping is
// performed here. A name containing a newline produces a malformed
// frame — that is the controller's responsibility, not ours.
package eventformat

import "strings"

// Heartbeat is the literal SSE comment line sent on every heartbeat tick.
// It is a plain byte string, not produced through Format: heartbeats carry
// no name or data and must never be confused with a real event.
const Heartbeat = ": heartbeat\n\n"

// Format renders an SSE event frame for the given optional name and data.
//
// Rules:
//   - a non-empty name produces a leading "event: <name>\n" line.
//   - data is split on literal '\n'; each segment becomes its own
//     "data: <segment>\n" line. Empty data still produces exactly one
//     empty "data: \n" line.
//   - the frame always ends with a blank line ("\n") terminator, so the
//     whole block ends with two consecutive newlines.
func Format(name, data string) []byte {
	var b strings.Builder

	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}

	segments := strings.Split(data, "\n")
	for _, segment := range segments {
		b.WriteString("data: ")
		b.WriteString(segment)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')

	return []byte(b.String())
}
