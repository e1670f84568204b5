package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Numbers below this threshold are whole seconds, anything at or above it is milliseconds.
const millisThreshold = 1e11

// Instants beyond ±100,000,000 days from the epoch are rejected.
const maxEpochMillis = 8.64e15

// InstantKind records which upstream representation an Instant was resolved from.
type InstantKind int

const (
	InstantInvalid InstantKind = iota
	InstantSeconds
	InstantMillis
	InstantNative
)

func (k InstantKind) String() string {
	switch k {
	case InstantSeconds:
		return "seconds"
	case InstantMillis:
		return "millis"
	case InstantNative:
		return "native"
	default:
		return "invalid"
	}
}

// Instant is a point in time read from the member store. Stored documents may
// carry epoch seconds, epoch milliseconds, numeric strings or native BSON
// dates; Instant resolves all of them once, at decode time, so the rest of the
// code only ever deals with a time.Time and a validity flag.
type Instant struct {
	Kind InstantKind
	Time time.Time
}

// SecondsInstant builds the canonical representation this service writes.
func SecondsInstant(sec int64) Instant {
	return Instant{Kind: InstantSeconds, Time: time.Unix(sec, 0)}
}

// Valid reports whether the instant resolved to a usable time.
func (i Instant) Valid() bool {
	return i.Kind != InstantInvalid
}

// IsZero lets bson omitempty treat an unresolved instant as empty.
func (i Instant) IsZero() bool {
	return !i.Valid()
}

// Unix returns whole seconds since the epoch, floored.
func (i Instant) Unix() int64 {
	return i.Time.Unix()
}

// EqualsEpoch reports whether the instant is stored exactly as the given
// whole-second epoch. Any other representation counts as different.
func (i Instant) EqualsEpoch(sec int64) bool {
	return i.Kind == InstantSeconds && i.Time.Nanosecond() == 0 && i.Time.Unix() == sec
}

// ToInstant resolves v and returns the time it denotes.
func ToInstant(v interface{}) (time.Time, bool) {
	in := ResolveInstant(v)
	if !in.Valid() {
		return time.Time{}, false
	}
	return in.Time, true
}

// ResolveInstant normalizes any supported upstream timestamp shape. Unsupported
// or unparseable input yields an invalid Instant rather than an error.
func ResolveInstant(v interface{}) Instant {
	switch x := v.(type) {
	case nil:
		return Instant{}
	case Instant:
		return x
	case *Instant:
		if x == nil {
			return Instant{}
		}
		return *x
	case time.Time:
		if x.IsZero() {
			return Instant{}
		}
		return Instant{Kind: InstantNative, Time: x}
	case *time.Time:
		if x == nil {
			return Instant{}
		}
		return ResolveInstant(*x)
	case primitive.DateTime:
		return Instant{Kind: InstantNative, Time: x.Time()}
	case primitive.Timestamp:
		return Instant{Kind: InstantNative, Time: time.Unix(int64(x.T), 0)}
	case int:
		return fromNumber(float64(x))
	case int32:
		return fromNumber(float64(x))
	case int64:
		return fromNumber(float64(x))
	case uint:
		return fromNumber(float64(x))
	case uint32:
		return fromNumber(float64(x))
	case uint64:
		return fromNumber(float64(x))
	case float32:
		return fromNumber(float64(x))
	case float64:
		return fromNumber(x)
	case json.Number:
		return fromString(string(x))
	case string:
		return fromString(x)
	case interface{ ToTime() time.Time }:
		return ResolveInstant(x.ToTime())
	case interface{ Time() time.Time }:
		return ResolveInstant(x.Time())
	}
	return Instant{}
}

func fromString(s string) Instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instant{}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Instant{}
	}
	return fromNumber(n)
}

func fromNumber(n float64) Instant {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Instant{}
	}
	kind := InstantMillis
	ms := n
	if n < millisThreshold {
		kind = InstantSeconds
		ms = n * 1000
	}
	ms = math.Trunc(ms)
	if math.Abs(ms) > maxEpochMillis {
		return Instant{}
	}
	return Instant{Kind: kind, Time: time.UnixMilli(int64(ms))}
}

// MarshalBSONValue writes the instant back in the representation it was read
// from. Instants built by this service are always whole seconds.
func (i Instant) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch i.Kind {
	case InstantSeconds:
		return bson.MarshalValue(i.Time.Unix())
	case InstantMillis:
		return bson.MarshalValue(i.Time.UnixMilli())
	case InstantNative:
		return bson.MarshalValue(primitive.NewDateTimeFromTime(i.Time))
	default:
		return bsontype.Null, nil, nil
	}
}

// UnmarshalBSONValue never fails: unknown BSON types decode as invalid.
func (i *Instant) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Int32:
		*i = ResolveInstant(rv.Int32())
	case bsontype.Int64:
		*i = ResolveInstant(rv.Int64())
	case bsontype.Double:
		*i = ResolveInstant(rv.Double())
	case bsontype.String:
		*i = ResolveInstant(rv.StringValue())
	case bsontype.DateTime:
		*i = ResolveInstant(primitive.DateTime(rv.DateTime()))
	case bsontype.Timestamp:
		sec, _ := rv.Timestamp()
		*i = ResolveInstant(primitive.Timestamp{T: sec})
	case bsontype.Decimal128:
		*i = ResolveInstant(rv.Decimal128().String())
	default:
		*i = Instant{}
	}
	return nil
}

// MarshalJSON emits whole-second epochs, or null.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(i.Time.Unix(), 10)), nil
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*i = ResolveInstant(raw)
	return nil
}
