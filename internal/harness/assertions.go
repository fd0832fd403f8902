package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// evaluateAssertion checks one assertion against the finished run.
func evaluateAssertion(a Assertion, r *Result) error {
	switch a.Type {
	case AssertDocument:
		actual, err := toJSONValue(r.Document)
		if err != nil {
			return err
		}
		expected, err := toJSONValue(a.Expect)
		if err != nil {
			return err
		}
		if path, ok := subsetMatch(actual, expected, "document"); !ok {
			return fmt.Errorf("%s: expected %v", path, lookup(expected, path))
		}
		return nil

	case AssertHistory:
		titles := make([]string, len(r.Document.History))
		for i, h := range r.Document.History {
			titles[i] = h.Action
		}
		if a.Count != nil && *a.Count != len(titles) {
			return fmt.Errorf("expected %d history entries, got %d", *a.Count, len(titles))
		}
		if a.Actions != nil && !slices.Equal(a.Actions, titles) {
			return fmt.Errorf("expected history %v, got %v", a.Actions, titles)
		}
		return nil

	case AssertSaves:
		if *a.Count != r.Saves {
			return fmt.Errorf("expected %d saves, got %d", *a.Count, r.Saves)
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// toJSONValue round-trips v through encoding/json so YAML integers and
// document fields compare as the same float64 values.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subsetMatch reports whether every key in expected appears in actual with
// an equal value. Nested objects match as subsets too; arrays and scalars
// must be equal. On mismatch it returns the path of the first difference.
func subsetMatch(actual, expected any, path string) (string, bool) {
	expMap, ok := expected.(map[string]any)
	if !ok {
		return path, reflect.DeepEqual(actual, expected)
	}
	actMap, ok := actual.(map[string]any)
	if !ok {
		return path, false
	}

	keys := make([]string, 0, len(expMap))
	for k := range expMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		child := path + "." + k
		actVal, exists := actMap[k]
		if !exists {
			return child, false
		}
		if p, ok := subsetMatch(actVal, expMap[k], child); !ok {
			return p, false
		}
	}
	return path, true
}

// lookup returns the expected value at a dotted path produced by
// subsetMatch, for error messages.
func lookup(expected any, path string) any {
	cur := expected
	for _, part := range strings.Split(path, ".")[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return cur
		}
		cur = m[part]
	}
	return cur
}
