package build

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/dedent"
)

// EnvOverridePrefix is prepended to an override key to form the environment
// variable that takes precedence over any value passed in code.
const EnvOverridePrefix = "OTF_"

// Overrides are toolchain script snippets and options keyed by hook name
// (script_after_read, add_constraints, ...).
type Overrides map[string]string

// Lookup returns the effective value of key: the OTF_<key> environment
// variable if set, otherwise the stored value dedented and trimmed.
func (o Overrides) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(EnvOverridePrefix + key); ok {
		// Windows cannot set an empty variable; treat `set VAR=""` as empty.
		if v == `""` {
			v = ""
		}
		return v, true
	}
	v, ok := o[key]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(dedent.Dedent(v)), true
}

// Get returns the effective value of key or def.
func (o Overrides) Get(key, def string) string {
	if v, ok := o.Lookup(key); ok {
		return v
	}
	return def
}

// Keys returns the stored keys in sorted order.
func (o Overrides) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MergeOverrides combines platform-supplied overrides with caller overrides.
// A key present in both is a conflict, so neither side silently wins.
func MergeOverrides(platform, caller Overrides) (Overrides, error) {
	merged := make(Overrides, len(platform)+len(caller))
	for k, v := range platform {
		merged[k] = v
	}
	var conflicts []string
	for k, v := range caller {
		if _, dup := platform[k]; dup {
			conflicts = append(conflicts, k)
			continue
		}
		merged[k] = v
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, fmt.Errorf("%w: multiple values for %s", ErrOverrideConflict, strings.Join(conflicts, ", "))
	}
	return merged, nil
}

// ParseOverrides parses "key=value" pairs as given on the command line.
func ParseOverrides(pairs []string) (Overrides, error) {
	out := make(Overrides, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("build: override %q is not in key=value form", pair)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: %s given twice", ErrOverrideConflict, key)
		}
		out[key] = value
	}
	return out, nil
}
