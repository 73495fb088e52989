package memstore

import (
	"strings"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// asMap views a nested document as a map, whichever form the decoder chose
func asMap(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return bson.M(d), true
	case primitive.D:
		return d.Map(), true
	}
	return nil, false
}

func lookup(doc bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, part := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func deletePath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			return
		}
		cur[part] = next
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// operatorMap returns v as an operator document when every key is an operator
func operatorMap(v any) (bson.M, bool) {
	m, ok := asMap(v)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !database.IsOperator(k) {
			return nil, false
		}
	}
	return m, true
}

func matches(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		value, present := lookup(doc, key)
		if ops, ok := operatorMap(cond); ok {
			for op, arg := range ops {
				if !applyOperator(op, value, present, arg) {
					return false
				}
			}
			continue
		}
		if !equalTo(value, present, cond) {
			return false
		}
	}
	return true
}

func applyOperator(op string, value any, present bool, arg any) bool {
	switch op {
	case "$eq":
		return equalTo(value, present, arg)
	case "$ne":
		return !equalTo(value, present, arg)
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false
		}
		c, ok := compare(value, arg)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return c > 0
		case "$gte":
			return c >= 0
		case "$lt":
			return c < 0
		default:
			return c <= 0
		}
	case "$in":
		list, ok := arg.(primitive.A)
		if !ok {
			return false
		}
		for _, candidate := range list {
			if equalTo(value, present, candidate) {
				return true
			}
		}
		return false
	case "$exists":
		want, _ := arg.(bool)
		return present == want
	}
	return false
}

// equalTo follows MongoDB: a null filter matches null and missing fields
func equalTo(value any, present bool, want any) bool {
	if want == nil {
		return !present || value == nil
	}
	if !present || value == nil {
		return false
	}
	c, ok := compare(value, want)
	return ok && c == 0
}

// normalize maps numbers to float64 and datetimes to time.Time
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case primitive.DateTime:
		return n.Time()
	case time.Time:
		return n
	}
	return v
}

// compare orders two values of the same kind; ok is false across kinds
func compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

// compareForSort puts missing and null values first, as MongoDB does
func compareForSort(a any, aok bool, b any, bok bool) int {
	aNil := !aok || a == nil
	bNil := !bok || b == nil
	switch {
	case aNil && bNil:
		return 0
	case aNil:
		return -1
	case bNil:
		return 1
	}
	c, _ := compare(a, b)
	return c
}
