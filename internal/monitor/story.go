package monitor

import (
	"fmt"
	"strings"

	"github.com/danmuck/xrefresh/internal/protocol"
)

// Story summarises the files array of a DoRefresh message, e.g.
// "2 items created and one item deleted". Entries with an unknown or missing
// action are not counted. With nothing to report the story is "?".
func Story(msg protocol.Message) string {
	counts := make(map[string]int, 4)
	for _, file := range msg.List(protocol.FieldFiles) {
		counts[file.String(protocol.FieldAction)]++
	}

	clauses := make([]string, 0, 4)
	for _, action := range []string{
		protocol.ActionCreated,
		protocol.ActionDeleted,
		protocol.ActionChanged,
		protocol.ActionRenamed,
	} {
		if s := fileSentence(counts[action], action); s != "" {
			clauses = append(clauses, s)
		}
	}

	switch len(clauses) {
	case 0:
		return "?"
	case 1:
		return clauses[0]
	default:
		last := len(clauses) - 1
		return strings.Join(clauses[:last], ", ") + " and " + clauses[last]
	}
}

func fileSentence(n int, action string) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "one item " + action
	default:
		return fmt.Sprintf("%d items %s", n, action)
	}
}
