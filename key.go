package memocache

import (
	"fmt"
	"maps"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/unkn0wn-root/memocache/internal/util"
)

// SkipCacheArg is the reserved keyword argument. When it holds a bool it is
// removed before key derivation and before the operation runs; true makes
// the call bypass both cache read and write. A value of any other type is
// left in place and treated as an ordinary keyword argument.
const SkipCacheArg = "skipCache"

// Args are the arguments of one call of a wrapped operation.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Call builds Args from positional values.
func Call(positional ...any) Args {
	return Args{Positional: positional}
}

// With returns a copy of a with the keyword argument set.
func (a Args) With(name string, v any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	maps.Copy(kw, a.Keyword)
	kw[name] = v
	a.Keyword = kw
	return a
}

// stripSkip removes a bool SkipCacheArg without touching the caller's map.
func stripSkip(a Args) (Args, bool) {
	skip, ok := a.Keyword[SkipCacheArg].(bool)
	if !ok {
		return a, false
	}
	kw := make(map[string]any, len(a.Keyword)-1)
	for k, v := range a.Keyword {
		if k != SkipCacheArg {
			kw[k] = v
		}
	}
	a.Keyword = kw
	return a, skip
}

// DefaultKey renders name and args as
//
//	name:[p0, p1, ...]:{k1=v1, k2=v2, ...}
//
// Values use Go-syntax formatting (%#v), so 1 and "1" differ. Keyword
// arguments are sorted by name. A value passed positionally and the same
// value passed by keyword produce different keys. Pointers render as
// addresses; use a KeyBuilder when arguments carry pointers.
func DefaultKey(name string, args Args) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(":[")
	for i, v := range args.Positional {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%#v", v)
	}
	b.WriteString("]:{")
	for i, k := range slices.Sorted(maps.Keys(args.Keyword)) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%#v", k, args.Keyword[k])
	}
	b.WriteString("}")
	return b.String()
}

// ShortKey returns key unchanged when maxLen <= 0 or len(key) <= maxLen,
// otherwise name + ":" + 16 hex chars of its sha256.
func ShortKey(name, key string, maxLen int) string {
	if maxLen <= 0 || len(key) <= maxLen {
		return key
	}
	return util.HashKey(name, key)
}

func funcName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return ""
}
