package hdata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// verifier carries the state of one consistency check.
type verifier struct {
	w      *Walker
	report *types.DiagnosticReport

	// visited holds objects already checked, per type.
	visited map[string]map[uintptr]bool
}

// Verify walks every list of the named types (every materialized type when
// names is empty) and collects consistency issues: cycles, overlong lists,
// prev/next links that disagree, list tails that are not tails, and
// relation fields pointing at objects no longer reachable in their type's
// checked lists. List-less types reached through a relation are walked from
// the related object.
//
// Verify never modifies objects and never stops at the first issue.
func (w *Walker) Verify(names ...string) *types.DiagnosticReport {
	start := time.Now()
	v := &verifier{
		w:       w,
		report:  types.NewDiagnosticReport(),
		visited: make(map[string]map[uintptr]bool),
	}
	if len(names) == 0 {
		names = w.reg.Materialized()
	}

	for _, name := range names {
		t, ok := w.reg.Resolve(name)
		if !ok {
			v.add(types.Diagnostic{
				Severity: types.SevWarning,
				Category: types.DiagStructure,
				Type:     name,
				Issue:    "type is not registered",
			})
			continue
		}
		v.report.Types++
		v.checkType(t)
	}

	v.report.ScanTime = time.Since(start)
	v.report.Finalize()
	logger.Debug("hdata verify",
		"types", v.report.Types,
		"objects", v.report.Objects,
		"issues", len(v.report.Diagnostics),
		"elapsed", v.report.ScanTime)
	return v.report
}

func (v *verifier) add(d types.Diagnostic) { v.report.Add(d) }

func (v *verifier) checkType(t *Type) {
	for _, name := range t.FieldNames() {
		f := t.fields[name]
		if f.Related == "" {
			continue
		}
		if _, ok := v.w.reg.Resolve(f.Related); !ok {
			v.add(types.Diagnostic{
				Severity: types.SevWarning,
				Category: types.DiagRelation,
				Type:     t.name,
				Field:    f.Name,
				Issue:    fmt.Sprintf("related type %q is not registered", f.Related),
			})
		}
	}

	for _, name := range t.ListNames() {
		v.report.Lists++
		root := normalizeNil(t.lists[name].Root())
		if root == nil {
			continue
		}
		if _, ok := t.fields[t.opts.Next]; !ok {
			// A single object, not a chain.
			v.checkObject(t, name, root)
			continue
		}
		if strings.HasPrefix(name, "last_") {
			if next := v.w.next(t, root, t.opts.Next); next != nil {
				v.add(types.Diagnostic{
					Severity: types.SevWarning,
					Category: types.DiagStructure,
					Type:     t.name,
					List:     name,
					Object:   FormatAddr(root),
					Issue:    "list tail has a next object",
					Expected: "0x0",
					Actual:   FormatAddr(next),
				})
			}
		}
		v.checkChain(t, name, root)
	}
}

// checkChain walks from start and checks every object on the way.
func (v *verifier) checkChain(t *Type, list string, start any) {
	length := 0
	err := v.w.WalkFrom(t, start, func(obj any) bool {
		length++
		v.checkObject(t, list, obj)
		return true
	})

	switch {
	case errors.Is(err, types.ErrCycle):
		v.add(types.Diagnostic{
			Severity: types.SevCritical,
			Category: types.DiagStructure,
			Type:     t.name,
			List:     list,
			Object:   FormatAddr(start),
			Issue:    "list loops back on itself",
			Actual:   err.Error(),
		})
	case errors.Is(err, types.ErrOutOfRange):
		v.add(types.Diagnostic{
			Severity: types.SevError,
			Category: types.DiagStructure,
			Type:     t.name,
			List:     list,
			Object:   FormatAddr(start),
			Issue:    "list is longer than the walk limit",
			Expected: v.w.limits.MaxListLength,
		})
	case err != nil:
		v.add(types.Diagnostic{
			Severity: types.SevError,
			Category: types.DiagStructure,
			Type:     t.name,
			List:     list,
			Issue:    err.Error(),
		})
	case length > v.w.limits.MaxListLength/2:
		v.add(types.Diagnostic{
			Severity: types.SevInfo,
			Category: types.DiagPerformance,
			Type:     t.name,
			List:     list,
			Issue:    "list is over half the walk limit",
			Actual:   length,
		})
	}
}

// checkObject checks the links and relations of obj once per type.
func (v *verifier) checkObject(t *Type, list string, obj any) {
	seen := v.visited[t.name]
	if seen == nil {
		seen = make(map[uintptr]bool)
		v.visited[t.name] = seen
	}
	if addr := Addr(obj); addr != 0 {
		if seen[addr] {
			return
		}
		seen[addr] = true
	}
	v.report.Objects++

	if _, ok := t.fields[t.opts.Prev]; ok {
		if next := v.w.next(t, obj, t.opts.Next); next != nil {
			if back := v.w.next(t, next, t.opts.Prev); !sameObject(back, obj) {
				v.add(types.Diagnostic{
					Severity: types.SevError,
					Category: types.DiagLink,
					Type:     t.name,
					List:     list,
					Field:    t.opts.Prev,
					Object:   FormatAddr(next),
					Issue:    "next object does not link back",
					Expected: FormatAddr(obj),
					Actual:   FormatAddr(back),
				})
			}
		}
	}

	for _, name := range t.FieldNames() {
		f := t.fields[name]
		if f.Related == "" || f.IsArray() || f.Type != TypePointer {
			continue
		}
		if name == t.opts.Prev || name == t.opts.Next {
			continue
		}
		p := f.Get(obj).Pointer()
		if p == nil {
			continue
		}
		rt, ok := v.w.reg.Resolve(f.Related)
		if !ok {
			continue
		}
		if !v.w.ValidatePointer(rt, "", p) {
			v.add(types.Diagnostic{
				Severity: types.SevError,
				Category: types.DiagRelation,
				Type:     t.name,
				List:     list,
				Field:    f.Name,
				Object:   FormatAddr(obj),
				Issue:    fmt.Sprintf("points to a %s not in any checked list", rt.name),
				Actual:   FormatAddr(p),
			})
			continue
		}
		// Types without lists are only reachable through relations.
		if len(rt.lists) == 0 && !v.visited[rt.name][Addr(p)] {
			if _, chained := rt.fields[rt.opts.Next]; chained {
				v.checkChain(rt, t.name+"."+f.Name, p)
			} else {
				v.checkObject(rt, t.name+"."+f.Name, p)
			}
		}
	}
}
