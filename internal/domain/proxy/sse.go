package proxy

import (
	"bytes"
	"strings"
)

// sseEvent is a parsed (event_name, data_text) pair (spec §3 SSE Event).
type sseEvent struct {
	Name string
	Data string
}

// Serialize renders the event using the fixed framing rule of spec §3:
// "event: <name>\ndata: <text>\n\n". The event: line is omitted when Name
// is empty, matching providers (OpenAI) that never send a named event.
func (e sseEvent) Serialize() []byte {
	var b bytes.Buffer
	if e.Name != "" {
		b.WriteString("event: ")
		b.WriteString(e.Name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(e.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// sseLineBuffer accumulates bytes across network chunk boundaries until a
// blank-line separator ("\n\n") appears, then yields complete event
// blocks. Partial trailing bytes remain buffered (spec §4.3.5 "Byte-to-
// event boundary handling").
type sseLineBuffer struct {
	buf []byte
}

// rawBlock pairs a parsed event with the raw bytes it was parsed from, so
// passthrough emission can replay upstream framing byte-for-byte.
type rawBlock struct {
	raw   []byte
	event sseEvent
}

// Feed appends chunk and returns every complete event block now available.
func (b *sseLineBuffer) Feed(chunk []byte) []rawBlock {
	b.buf = append(b.buf, chunk...)

	var blocks []rawBlock
	for {
		idx := bytes.Index(b.buf, []byte("\n\n"))
		if idx < 0 {
			break
		}
		raw := b.buf[:idx+2]
		block := make([]byte, len(raw))
		copy(block, raw)
		blocks = append(blocks, rawBlock{raw: block, event: parseEventBlock(block)})
		b.buf = b.buf[idx+2:]
	}
	return blocks
}

// parseEventBlock parses one "event:"/"data:" framed block into an
// sseEvent. Multiple data: lines are joined with "\n" per the SSE spec.
func parseEventBlock(block []byte) sseEvent {
	var e sseEvent
	var dataLines []string
	for _, line := range strings.Split(strings.TrimRight(string(block), "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			e.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	e.Data = strings.Join(dataLines, "\n")
	return e
}
