package chat

import "strings"

// ConversationKey derives the deterministic identifier for the unordered pair
// of participants. Both sides compute the same key without a lookup.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// Counterparty extracts the other participant from a conversation key. It
// tolerates underscores inside the other participant's id; self must match an
// exact prefix or suffix of the key.
func Counterparty(key, self string) (string, bool) {
	if rest, ok := strings.CutPrefix(key, self+"_"); ok && rest != "" {
		return rest, true
	}
	if rest, ok := strings.CutSuffix(key, "_"+self); ok && rest != "" {
		return rest, true
	}
	return "", false
}
