// Package selection maps ranked strategies to the exported strategy files
// that belong to them and names their ranked copies.
package selection

import (
	"fmt"
	"strings"

	"github.com/okian/sqxrank/internal/domain/ranking"
)

// DefaultExtension is the StrategyQuant strategy file extension.
const DefaultExtension = ".sqx"

// Copy is one planned file copy, by file name relative to the source and
// destination directories.
type Copy struct {
	Position int
	ID       string
	Source   string
	Target   string
}

// MatchKey turns a strategy identifier into the prefix its files carry on
// disk. StrategyQuant writes ':' as '_' in file names.
func MatchKey(id string) string {
	return strings.ReplaceAll(id, ":", "_")
}

// TargetName is the destination file name for a strategy at position:
// the position zero-padded to two digits, the match key and the extension.
func TargetName(position int, key, ext string) string {
	return fmt.Sprintf("%02d_%s%s", position, key, ext)
}

// Candidates keeps the names ending in ext, preserving order.
func Candidates(names []string, ext string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, ext) {
			out = append(out, name)
		}
	}
	return out
}

// Plan lists the copies for the ranked entries in table order. Every
// candidate whose name starts with an entry's match key is copied; several
// matches share one target name, so the last one in candidate order is
// the copy that remains.
func Plan(entries []ranking.Entry, candidates []string, ext string) []Copy {
	var plan []Copy
	for _, e := range entries {
		key := MatchKey(e.ID)
		target := TargetName(e.Position, key, ext)
		for _, name := range candidates {
			if strings.HasPrefix(name, key) {
				plan = append(plan, Copy{
					Position: e.Position,
					ID:       e.ID,
					Source:   name,
					Target:   target,
				})
			}
		}
	}
	return plan
}

// Unmatched returns the IDs of entries no candidate matched.
func Unmatched(entries []ranking.Entry, plan []Copy) []string {
	matched := make(map[int]struct{}, len(plan))
	for _, c := range plan {
		matched[c.Position] = struct{}{}
	}
	var out []string
	for _, e := range entries {
		if _, ok := matched[e.Position]; !ok {
			out = append(out, e.ID)
		}
	}
	return out
}
