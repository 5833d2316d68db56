package host

import (
	"strconv"
	"time"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

// hookHdata registers the providers of the core types. Each runs once, on
// the first lookup of its name.
func (c *Context) hookHdata() error {
	specs := []hook.HdataSpec{
		{Name: "buffer", Description: "buffer", Callback: c.describeBuffer},
		{Name: "line", Description: "line of a buffer", Callback: c.describeLine},
		{Name: "window", Description: "window", Callback: c.describeWindow},
		{Name: "config_option", Description: "config option", Callback: c.describeOption},
		{Name: "plugin", Description: "loaded plugin", Callback: c.describePlugin},
		{Name: "hook", Description: "hook (all kinds)", Callback: c.hooks.DescribeHooks},
	}
	for _, s := range specs {
		if _, err := c.hooks.HookHdata("", s); err != nil {
			return err
		}
	}
	return nil
}

// The methods below form the boundary for external clients (a relay, the
// CLI): objects are named by handles, and every handle is validated
// against the type's lists before the object is touched.

// Query evaluates an hdata path, see [hdata.Walker.Query].
func (c *Context) Query(path string, keys []string) ([]hdata.Item, error) {
	return c.walker.Query(path, keys)
}

// Handle returns the handle of a host object, for clients.
func (c *Context) Handle(obj any) hdata.Handle {
	return c.handles.Ref(obj)
}

// FormatValue renders a field value for clients. Pointers become handles
// that can be passed back as a query root.
func (c *Context) FormatValue(v hdata.Value) string {
	switch v.Type() {
	case hdata.TypeString, hdata.TypeSharedString:
		return strconv.Quote(v.Str())
	case hdata.TypeTime:
		if v.Time().IsZero() {
			return "0"
		}
		return v.Time().Format(time.RFC3339)
	case hdata.TypePointer:
		if v.IsNil() {
			return hdata.NullHandle.String()
		}
		return c.Handle(v.Pointer()).String()
	}
	return v.String()
}

// Lookup resolves handle text to a live object of the type named typeName.
func (c *Context) Lookup(typeName, handle string) (*hdata.Type, any, error) {
	t, ok := c.types.Resolve(typeName)
	if !ok {
		return nil, nil, types.Errorf(types.ErrNotFound, "type %q", typeName)
	}
	h, err := hdata.ParseHandle(handle)
	if err != nil {
		return nil, nil, err
	}
	obj, err := c.walker.Resolve(t, "", h)
	if err != nil {
		return nil, nil, err
	}
	return t, obj, nil
}

// GetPath reads a dotted path ("buffer.full_name") from the object behind
// handle.
func (c *Context) GetPath(typeName, handle, path string) (hdata.Value, error) {
	t, obj, err := c.Lookup(typeName, handle)
	if err != nil {
		return hdata.Value{}, err
	}
	return c.walker.GetPath(t, obj, path)
}

// UpdateHandle applies named values to the object behind handle through its
// type's update callback.
func (c *Context) UpdateHandle(typeName, handle string, values map[string]string) (int, error) {
	t, obj, err := c.Lookup(typeName, handle)
	if err != nil {
		return 0, err
	}
	return c.walker.Update(t, obj, values)
}

// UpdateObject is the in-process form of UpdateHandle: obj is trusted but
// still must be live. It fails when the update changed nothing.
func (c *Context) UpdateObject(typeName string, obj any, values map[string]string) error {
	t, ok := c.types.Resolve(typeName)
	if !ok {
		return types.Errorf(types.ErrNotFound, "type %q", typeName)
	}
	if !c.walker.ValidatePointer(t, "", obj) {
		return types.Errorf(types.ErrStalePointer, "%s: object not found", typeName)
	}
	n, err := c.walker.Update(t, obj, values)
	if err != nil {
		return err
	}
	if n == 0 {
		return types.Errorf(types.ErrInvalid, "%s: nothing updated", typeName)
	}
	return nil
}
