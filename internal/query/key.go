package query

import (
	"fmt"
	"strings"
)

// Key identifies a cached query: a resource name plus ordered filter parameters.
type Key struct {
	Resource string
	Params   []string
}

func NewKey(resource string, params ...any) Key {
	k := Key{Resource: resource}
	for _, p := range params {
		k.Params = append(k.Params, fmt.Sprint(p))
	}
	return k
}

func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Resource
	}
	return k.Resource + "/" + strings.Join(k.Params, "/")
}

// covers reports whether the cache key s falls under prefix p.
func covers(p, s string) bool {
	return s == p || strings.HasPrefix(s, p+"/")
}
