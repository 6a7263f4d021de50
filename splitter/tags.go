package splitter

import "encoding/json"

// NormalizeTags flattens a heterogeneous key/value mapping (as decoded
// from GeoJSON `properties`/`tags`, where values may be scalar or
// nested) into a flat string-to-string mapping (spec §9, "Dynamic tag
// parsing"). Non-scalar values are JSON-encoded into their string
// representation; the core only ever reads tags[building] and the
// fields named by the configured split predicate, so anything else
// just needs to round-trip as a string.
func NormalizeTags(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = scalarize(v)
	}
	return out
}

func scalarize(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64, int, int64:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// IsBuilding reports whether a Feature's normalized tags carry a
// non-null `building` tag (spec §3, Feature invariant).
func IsBuilding(tags map[string]string) bool {
	v, ok := tags["building"]
	return ok && v != ""
}

// SplitPredicate decides whether a linear feature's tags qualify it as
// an S1 LineSplit splitter. It is configuration, not hard-coded (spec
// §3, SplitLine).
type SplitPredicate func(tags map[string]string) bool

// DefaultSplitPredicate keeps every waterway and railway, plus every
// highway whose classification is not in cfg.ExcludedHighway (spec
// §3/§6.2 default: highways minus {service, pedestrian, track,
// bus_guideway}, plus all waterways and railways).
func DefaultSplitPredicate(cfg SplitTagConfig) SplitPredicate {
	excluded := make(map[string]struct{}, len(cfg.ExcludedHighway))
	for _, h := range cfg.ExcludedHighway {
		excluded[h] = struct{}{}
	}
	return func(tags map[string]string) bool {
		if cfg.IncludeWaterway {
			if _, ok := tags["waterway"]; ok {
				return true
			}
		}
		if cfg.IncludeRailway {
			if _, ok := tags["railway"]; ok {
				return true
			}
		}
		if hw, ok := tags["highway"]; ok {
			if _, blocked := excluded[hw]; !blocked {
				return true
			}
		}
		return false
	}
}
