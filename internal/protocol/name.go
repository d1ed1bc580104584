package protocol

import "strings"

const illegalNameChars = "$()*+?[]^{|}"

// IsNameIllegal reports whether a room name violates the naming rule: names
// must be 1-40 characters, must not have a leading or trailing space and must
// not contain any of $()*+?[]^{|}.
func IsNameIllegal(name string) bool {
	return len(name) == 0 ||
		len(name) > 40 ||
		strings.TrimSpace(name) != name ||
		strings.ContainsAny(name, illegalNameChars)
}
