// Package enginemsg frames and validates the embedded game-engine message
// stream: a base64 wrapper around concatenated records, each a one-byte
// length prefix followed by that many payload bytes, the first of which is
// the message type.
package enginemsg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// validMessages is the whitelist of forwardable type bytes: movement, attack,
// chat and a small set of control bytes, plus reserved high bytes.
const validMessages = "M#+LlRrUuDdZzAaSjJ,NpPwtgfhbc12345" +
	"\x80\x81\x82\x83\x84\x85\x86\x87\x88\x89\x8A"

// nonTimedMessages are exempt from round-timing bookkeeping.
const nonTimedMessages = "M#hb"

// emptyMessageType is a no-op heartbeat record.
const emptyMessageType = '+'

// hedgehogSwitchType additionally carries a team-index byte that must belong
// to the sending client.
const hedgehogSwitchType = 'h'

var (
	ErrTruncated = errors.New("truncated engine message record")
)

// Decode unwraps the base64 text and splits it into records. Both malformed
// base64 and a trailing partial record yield an error; callers turn that into
// a protocol error rather than dropping the connection.
func Decode(blob string) ([][]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("engine message base64: %w", err)
	}
	return Split(raw)
}

// Split cuts buf into length-prefixed records. Each record slice includes its
// length prefix, so re-encoding is plain concatenation.
func Split(buf []byte) ([][]byte, error) {
	var msgs [][]byte
	for len(buf) > 0 {
		size := int(buf[0]) + 1
		if size > len(buf) {
			return nil, ErrTruncated
		}
		msgs = append(msgs, buf[:size])
		buf = buf[size:]
	}
	return msgs, nil
}

// IsValid reports whether a record may be forwarded: its type byte must be
// whitelisted, and a hedgehog-switch record must name a team index in 1..8
// that the sender actually owns.
func IsValid(msg []byte, teamIndices []uint8) bool {
	if len(msg) < 2 {
		return false
	}
	typ := msg[1]
	if !contains(validMessages, typ) {
		return false
	}
	if typ == hedgehogSwitchType {
		if len(msg) < 3 {
			return false
		}
		idx := msg[2]
		if idx < 1 || idx > 8 {
			return false
		}
		return containsIndex(teamIndices, idx)
	}
	return true
}

// IsEmpty reports whether a record is a heartbeat no-op.
func IsEmpty(msg []byte) bool {
	return len(msg) >= 2 && msg[1] == emptyMessageType
}

// IsTimed reports whether a record counts against round timing.
func IsTimed(msg []byte) bool {
	return len(msg) >= 2 && !contains(nonTimedMessages, msg[1])
}

// Join concatenates records and re-encodes them as base64. Joining no
// records yields the empty string.
func Join(msgs [][]byte) string {
	total := 0
	for _, m := range msgs {
		total += len(m)
	}
	if total == 0 {
		return ""
	}
	flat := make([]byte, 0, total)
	for _, m := range msgs {
		flat = append(flat, m...)
	}
	return base64.StdEncoding.EncodeToString(flat)
}

// Filter returns the records msgs for which keep is true.
func Filter(msgs [][]byte, keep func([]byte) bool) [][]byte {
	var out [][]byte
	for _, m := range msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func contains(set string, b byte) bool {
	return strings.IndexByte(set, b) >= 0
}

func containsIndex(indices []uint8, idx uint8) bool {
	for _, i := range indices {
		if i == idx {
			return true
		}
	}
	return false
}
