package node

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/roach88/sequencer/internal/engine"
)

// truthy follows the host runtime's notion of a set flag.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	default:
		return true
	}
}

// parseSelector resolves a play/stop/remove field value:
//
//	null, "", [], true -> all
//	"name"             -> one
//	["a", "b"]         -> many
func parseSelector(field string, v gjson.Result) (engine.Selector, error) {
	switch {
	case v.Type == gjson.Null, v.Type == gjson.True:
		return engine.All(), nil
	case v.Type == gjson.String:
		return engine.One(v.Str), nil
	case v.IsArray():
		var names []string
		for _, item := range v.Array() {
			if item.Type != gjson.String {
				return engine.Selector{}, fmt.Errorf("%w: %s: list entries must be strings, got %s",
					ErrInvalidCommand, field, item.Raw)
			}
			names = append(names, item.Str)
		}
		return engine.Many(names...), nil
	}
	return engine.Selector{}, fmt.Errorf("%w: %s: expected empty, a name or a list of names, got %s",
		ErrInvalidCommand, field, v.Raw)
}

// recordOptions reads a start command. The session name falls back from
// start (when it is a name) to name to topic.
func recordOptions(msg gjson.Result) engine.RecordOptions {
	var o engine.RecordOptions

	if start := msg.Get("start"); start.Type == gjson.String && start.Str != "" {
		o.Name = start.Str
	} else if name := msg.Get("name"); name.Type == gjson.String && name.Str != "" {
		o.Name = name.Str
	} else if topic := msg.Get("topic"); topic.Type == gjson.String {
		o.Name = topic.Str
	}

	if v := msg.Get("maxElements"); v.Exists() {
		o.MaxElements = int(v.Int())
	}
	if v := msg.Get("maxDurationMs"); v.Exists() {
		o.MaxDuration = time.Duration(v.Int()) * time.Millisecond
	}
	o.StartImmediately = truthy(msg.Get("startImmediately"))
	return o
}
