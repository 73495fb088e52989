package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Timestamp is the canonical time type for every document field.
// The bot writes timestamps in several shapes; decoding normalizes all of
// them to UTC. The zero value means "absent" and encodes as null.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, truncated to the store's millisecond precision
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// Now returns the current time as a Timestamp
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// Ptr returns nil for the zero Timestamp, otherwise the wrapped time
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	tt := t.Time
	return &tt
}

// MarshalBSONValue implements bson.ValueMarshaler
func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if t.IsZero() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(t.Time)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}

	switch typ {
	case bson.TypeNull, bson.TypeUndefined:
		t.Time = time.Time{}
	case bson.TypeDateTime:
		t.Time = raw.Time().UTC()
	case bson.TypeTimestamp:
		sec, _ := raw.Timestamp()
		t.Time = time.Unix(int64(sec), 0).UTC()
	case bson.TypeInt64:
		t.Time = time.UnixMilli(raw.Int64()).UTC()
	case bson.TypeInt32:
		t.Time = time.UnixMilli(int64(raw.Int32())).UTC()
	case bson.TypeDouble:
		t.Time = time.UnixMilli(int64(raw.Double())).UTC()
	case bson.TypeString:
		parsed, err := parseTimeString(raw.StringValue())
		if err != nil {
			return err
		}
		t.Time = parsed
	case bson.TypeEmbeddedDocument:
		parsed, err := parseSecondsDocument(raw.Document())
		if err != nil {
			return err
		}
		t.Time = parsed
	default:
		return fmt.Errorf("cannot decode %s into Timestamp", typ)
	}
	return nil
}

// parseSecondsDocument handles {_seconds,_nanoseconds} and {seconds,nanos}
func parseSecondsDocument(doc bson.Raw) (time.Time, error) {
	for _, keys := range [][2]string{{"_seconds", "_nanoseconds"}, {"seconds", "nanos"}} {
		secVal, err := doc.LookupErr(keys[0])
		if err != nil {
			continue
		}
		sec, ok := numberOf(secVal)
		if !ok {
			return time.Time{}, fmt.Errorf("timestamp field %q is not numeric", keys[0])
		}
		var nanos int64
		if nVal, err := doc.LookupErr(keys[1]); err == nil {
			nanos, _ = numberOf(nVal)
		}
		return time.Unix(sec, nanos).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("document is not a timestamp")
}

func numberOf(v bson.RawValue) (int64, bool) {
	switch v.Type {
	case bson.TypeInt32:
		return int64(v.Int32()), true
	case bson.TypeInt64:
		return v.Int64(), true
	case bson.TypeDouble:
		return int64(v.Double()), true
	}
	return 0, false
}

func parseTimeString(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON renders RFC 3339 or null
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts null, RFC 3339 strings and epoch milliseconds
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseTimeString(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
