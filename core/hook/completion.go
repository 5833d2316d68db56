package hook

import (
	"slices"
	"strings"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Where tells Completion.Add where a word goes.
type Where int

const (
	WhereSort Where = iota
	WhereBeginning
	WhereEnd
)

// Completion collects the candidate words for one completion request.
type Completion struct {
	// Target is what the completion runs in, typically a buffer.
	Target any
	// Base is the partial word being completed.
	Base string
	// Args is the command line before the word.
	Args string

	words []string
}

// NewCompletion returns an empty completion for base.
func NewCompletion(target any, args, base string) *Completion {
	return &Completion{Target: target, Args: args, Base: base}
}

// Add adds word unless it is already present.
func (c *Completion) Add(word string, where Where) {
	if word == "" || slices.Contains(c.words, word) {
		return
	}
	switch where {
	case WhereBeginning:
		c.words = slices.Insert(c.words, 0, word)
	case WhereEnd:
		c.words = append(c.words, word)
	default:
		i, _ := slices.BinarySearchFunc(c.words, word, strmatch.CompareFold)
		c.words = slices.Insert(c.words, i, word)
	}
}

// Words returns every word added, in order.
func (c *Completion) Words() []string { return c.words }

// Matches returns the words starting with Base, case-insensitively.
func (c *Completion) Matches() []string {
	var out []string
	for _, w := range c.words {
		if strmatch.HasPrefixFold(w, c.Base) {
			out = append(out, w)
		}
	}
	return out
}

// CompletionFunc adds the words of a completion item to c.
type CompletionFunc func(item string, c *Completion) types.RC

// CompletionSpec describes a completion hook.
type CompletionSpec struct {
	// Item is the name used in templates as %(item).
	Item        string
	Description string
	Priority    int
	Callback    CompletionFunc
}

type completionData struct{ spec CompletionSpec }

func (d *completionData) describe() string { return d.spec.Item }

func (d *completionData) addToInfolist(it *infolist.Item) {
	it.AddString("completion_item", d.spec.Item).
		AddString("description", d.spec.Description)
}

// HookCompletion registers a completion item.
func (r *Registry) HookCompletion(owner string, spec CompletionSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Item)
	spec.Item, spec.Priority = k.Name, k.Priority
	if spec.Item == "" || strings.Contains(spec.Item, " ") || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "completion %q: invalid item or nil callback", spec.Item)
	}
	return r.add(KindCompletion, owner, spec.Priority, &completionData{spec: spec}), nil
}

// ExecCompletion runs every hook of item. An argument after ':' in item
// ("nicks:channel") is passed through but not used for matching.
func (r *Registry) ExecCompletion(item string, c *Completion) int {
	name, _, _ := strings.Cut(item, ":")
	n := 0
	r.each(KindCompletion, func(h *Hook) bool {
		d := h.data.(*completionData)
		if h.running > 0 || !strmatch.EqualFold(d.spec.Item, name) {
			return true
		}
		r.call(h, func() { d.spec.Callback(item, c) })
		n++
		return true
	})
	return n
}

// CompleteTemplate fills c from the part of a command completion template
// for argument arg (0-based). Template arguments are separated by spaces
// and alternatives by '|'; "%(item)" expands a completion item, anything
// else is a literal word.
func (r *Registry) CompleteTemplate(template string, arg int, c *Completion) {
	parts := strings.Fields(template)
	if len(parts) == 0 {
		return
	}
	if arg >= len(parts) {
		if parts[len(parts)-1] != "%*" || len(parts) < 2 {
			return
		}
		arg = len(parts) - 2
	}
	for _, alt := range strings.Split(parts[arg], "|") {
		if item, ok := strings.CutPrefix(alt, "%("); ok {
			r.ExecCompletion(strings.TrimSuffix(item, ")"), c)
			continue
		}
		if alt != "%*" && alt != "%-" {
			c.Add(alt, WhereEnd)
		}
	}
}
