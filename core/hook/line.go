package hook

import (
	"fmt"
	"maps"
	"strings"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Line keys read by line hooks. A hook may return any of them to change
// the line; returning an empty "buffer_name" drops it.
const (
	LineBufferName = "buffer_name"
	LineBufferType = "buffer_type"
	LineTags       = "tags"
	LinePrefix     = "prefix"
	LineMessage    = "message"
)

// LineFunc receives a line about to be displayed and returns the keys to
// change, or nil.
type LineFunc func(line map[string]string) map[string]string

// LineSpec describes a line hook.
type LineSpec struct {
	// BufferType is "formatted" (default), "free" or "*".
	BufferType string
	// BufferName is a list of masks on the buffer's full name; empty is "*".
	BufferName string
	// Tags selects lines by tag: "irc_join,irc_part" matches either,
	// "irc_privmsg+nick_*" requires both. Empty matches every line.
	Tags     string
	Priority int
	Callback LineFunc
}

type lineData struct {
	spec    LineSpec
	buffers []string
	tags    [][]string
}

func (d *lineData) describe() string {
	return fmt.Sprintf("buffer type: %s, %d buffers, %d tags", d.spec.BufferType, len(d.buffers), len(d.tags))
}

func (d *lineData) addToInfolist(it *infolist.Item) {
	it.AddString("buffer_type", d.spec.BufferType).
		AddString("buffers", strings.Join(d.buffers, ",")).
		AddInteger("num_buffers", len(d.buffers)).
		AddInteger("tags_count", len(d.tags))
}

// HookLine registers a line hook.
func (r *Registry) HookLine(owner string, spec LineSpec) (*Hook, error) {
	if spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "line: nil callback")
	}
	k := key(spec.Priority, spec.BufferType)
	spec.BufferType, spec.Priority = k.Name, k.Priority
	switch spec.BufferType {
	case "":
		spec.BufferType = "formatted"
	case "formatted", "free", "*":
	default:
		return nil, types.Errorf(types.ErrInvalid, "line: unknown buffer type %q", spec.BufferType)
	}
	d := &lineData{spec: spec, buffers: strmatch.SplitMasks(spec.BufferName)}
	if len(d.buffers) == 0 {
		d.buffers = []string{"*"}
	}
	for _, alt := range strmatch.SplitMasks(spec.Tags) {
		d.tags = append(d.tags, strings.Split(alt, "+"))
	}
	return r.add(KindLine, owner, spec.Priority, d), nil
}

func (d *lineData) matches(line map[string]string) bool {
	if d.spec.BufferType != "*" && d.spec.BufferType != line[LineBufferType] {
		return false
	}
	if !strmatch.MatchList(line[LineBufferName], d.buffers, false) {
		return false
	}
	if len(d.tags) == 0 {
		return true
	}
	lineTags := strings.Split(line[LineTags], ",")
	for _, all := range d.tags {
		if matchAllTags(lineTags, all) {
			return true
		}
	}
	return false
}

func matchAllTags(lineTags, masks []string) bool {
	for _, m := range masks {
		found := false
		for _, t := range lineTags {
			if t != "" && strmatch.Match(t, m, false) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ExecLine runs the line hooks matching line and returns the line with
// their changes applied, or nil once a hook dropped it.
func (r *Registry) ExecLine(line map[string]string) map[string]string {
	line = maps.Clone(line)
	r.each(KindLine, func(h *Hook) bool {
		d := h.data.(*lineData)
		if h.running > 0 || !d.matches(line) {
			return true
		}
		var got map[string]string
		r.call(h, func() { got = d.spec.Callback(maps.Clone(line)) })
		if got == nil {
			return true
		}
		maps.Copy(line, got)
		if name, ok := got[LineBufferName]; ok && name == "" {
			line = nil
			return false
		}
		return true
	})
	return line
}
