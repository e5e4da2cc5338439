package ai

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotJSON reports that a model reply carried no recognizable JSON object.
var ErrNotJSON = errors.New("reply does not appear to be JSON")

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// JSONBlock isolates the JSON object from a raw model reply. Model output is
// adversarial-by-default input, so the fallback order is fixed and observable:
//
//  1. a fenced ```json block, when present, wins;
//  2. otherwise the whole trimmed reply is the candidate, required to start
//     with '{' and end with '}';
//  3. literal \n and \" escape sequences are undone, since models sometimes
//     double-escape their output.
//
// The returned string is ready for json.Unmarshal; ErrNotJSON is returned when
// no candidate survives step 2.
func JSONBlock(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)

	if m := fencedJSON.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	} else if !strings.HasPrefix(candidate, "{") || !strings.HasSuffix(candidate, "}") {
		return "", ErrNotJSON
	}

	candidate = strings.ReplaceAll(candidate, `\n`, "\n")
	candidate = strings.ReplaceAll(candidate, `\"`, `"`)

	return candidate, nil
}
