package utils

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTimestamp struct{ t time.Time }

func (f fakeTimestamp) ToTime() time.Time { return f.t }

func TestResolveInstant(t *testing.T) {
	native := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in       interface{}
		wantKind InstantKind
		wantUnix int64
	}{
		{name: "nil", in: nil, wantKind: InstantInvalid},
		{name: "seconds int", in: int64(1735689600), wantKind: InstantSeconds, wantUnix: 1735689600},
		{name: "seconds float", in: 1735689600.0, wantKind: InstantSeconds, wantUnix: 1735689600},
		{name: "millis", in: int64(1735689600000), wantKind: InstantMillis, wantUnix: 1735689600},
		{name: "threshold is millis", in: 1e11, wantKind: InstantMillis, wantUnix: 100000000},
		{name: "numeric string", in: " 1735689600 ", wantKind: InstantSeconds, wantUnix: 1735689600},
		{name: "millis string", in: "1735689600000", wantKind: InstantMillis, wantUnix: 1735689600},
		{name: "empty string", in: "", wantKind: InstantInvalid},
		{name: "garbage string", in: "yesterday", wantKind: InstantInvalid},
		{name: "native time", in: native, wantKind: InstantNative, wantUnix: native.Unix()},
		{name: "zero time", in: time.Time{}, wantKind: InstantInvalid},
		{name: "bson datetime", in: primitive.NewDateTimeFromTime(native), wantKind: InstantNative, wantUnix: native.Unix()},
		{name: "bson timestamp", in: primitive.Timestamp{T: uint32(native.Unix())}, wantKind: InstantNative, wantUnix: native.Unix()},
		{name: "to-date capability", in: fakeTimestamp{t: native}, wantKind: InstantNative, wantUnix: native.Unix()},
		{name: "unsupported type", in: []int{1}, wantKind: InstantInvalid},
		{name: "out of range", in: 1e300, wantKind: InstantInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveInstant(tt.in)
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Valid() && got.Unix() != tt.wantUnix {
				t.Fatalf("unix = %d, want %d", got.Unix(), tt.wantUnix)
			}
		})
	}
}

func TestInstantBSONDecodeTolerant(t *testing.T) {
	native := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := bson.M{
		"a": int32(1000),
		"b": int64(1735689600000),
		"c": "1735689600",
		"d": primitive.NewDateTimeFromTime(native),
		"e": nil,
		"f": true,
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out struct {
		A Instant `bson:"a"`
		B Instant `bson:"b"`
		C Instant `bson:"c"`
		D Instant `bson:"d"`
		E Instant `bson:"e"`
		F Instant `bson:"f"`
		G Instant `bson:"g"`
	}
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.A.Kind != InstantSeconds || out.A.Unix() != 1000 {
		t.Errorf("a = %+v", out.A)
	}
	if out.B.Kind != InstantMillis || out.B.Unix() != 1735689600 {
		t.Errorf("b = %+v", out.B)
	}
	if out.C.Kind != InstantSeconds || out.C.Unix() != 1735689600 {
		t.Errorf("c = %+v", out.C)
	}
	if out.D.Kind != InstantNative || !out.D.Time.Equal(native) {
		t.Errorf("d = %+v", out.D)
	}
	for name, in := range map[string]Instant{"e": out.E, "f": out.F, "g": out.G} {
		if in.Valid() {
			t.Errorf("%s should be invalid, got %+v", name, in)
		}
	}
}

func TestInstantBSONRoundTripKeepsRepresentation(t *testing.T) {
	in := struct {
		S Instant `bson:"s"`
		M Instant `bson:"m"`
	}{
		S: SecondsInstant(1735689600),
		M: ResolveInstant(int64(1735689600123)),
	}
	raw, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["s"] != int64(1735689600) {
		t.Errorf("s stored as %#v", doc["s"])
	}
	if doc["m"] != int64(1735689600123) {
		t.Errorf("m stored as %#v", doc["m"])
	}
}

func TestInstantJSON(t *testing.T) {
	var in struct {
		A Instant `json:"a"`
		B Instant `json:"b"`
		C Instant `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":1735689600,"b":"1735689600000","c":null}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.A.EqualsEpoch(1735689600) {
		t.Errorf("a = %+v", in.A)
	}
	if in.B.Kind != InstantMillis {
		t.Errorf("b kind = %s", in.B.Kind)
	}
	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":1735689600,"b":1735689600,"c":null}` {
		t.Errorf("json = %s", out)
	}
}

func TestParseUSDate(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{in: "01/01/2025", want: time.Date(2025, 1, 1, 0, 0, 0, 0, loc), ok: true},
		{in: "1-2-2025", want: time.Date(2025, 1, 2, 0, 0, 0, 0, loc), ok: true},
		{in: " 12.31.1999 ", want: time.Date(1999, 12, 31, 0, 0, 0, 0, loc), ok: true},
		{in: "02/29/2024", want: time.Date(2024, 2, 29, 0, 0, 0, 0, loc), ok: true},
		{in: "13/40/2020"},
		{in: "00/10/2020"},
		{in: "02/30/2023"},
		{in: "02/29/2023"},
		{in: "01/01/1899"},
		{in: "01/2025"},
		{in: "aa/bb/cccc"},
		{in: ""},
	}
	for _, tt := range tests {
		got, ok := ParseUSDate(tt.in, loc)
		if ok != tt.ok {
			t.Errorf("ParseUSDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want.Unix() {
			t.Errorf("ParseUSDate(%q) = %d, want %d", tt.in, got, tt.want.Unix())
		}
	}
}

func TestFormatUSDate(t *testing.T) {
	opts := DisplayOptions{YearOffset: 100, Location: time.UTC}
	feb1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC).Unix()

	if got := FormatUSDate(feb1, opts); got != "02/01/2125" {
		t.Errorf("FormatUSDate = %q, want 02/01/2125", got)
	}
	if got := FormatUSDate(nil, opts); got != DatePlaceholder {
		t.Errorf("FormatUSDate(nil) = %q", got)
	}
	if got := FormatUSDate(feb1, DisplayOptions{Location: time.UTC}); got != "02/01/2025" {
		t.Errorf("zero offset = %q", got)
	}
	if got := FormatDateTime(feb1+3661, opts); got != "02/01/2125 01:01:01" {
		t.Errorf("FormatDateTime = %q", got)
	}
	if got := FormatDateTime("x", opts); got != DateTimePlaceholder {
		t.Errorf("FormatDateTime(invalid) = %q", got)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	loc := time.UTC
	opts := DisplayOptions{YearOffset: 100, Location: loc}
	samples := []int64{0, 86399, 951868800, 1709164800, 1735689600, 1767225599, 4102444800}

	for _, x := range samples {
		text := FormatUSDate(x, opts)
		parsed, ok := ParseUSDate(text, loc)
		if !ok {
			t.Fatalf("round trip of %d failed to parse %q", x, text)
		}
		back := ShiftDisplayYear(time.Unix(parsed, 0).In(loc), -opts.YearOffset)
		orig := time.Unix(x, 0).In(loc)
		if back.Year() != orig.Year() || back.Month() != orig.Month() || back.Day() != orig.Day() {
			t.Errorf("round trip of %d: got %s, want %s", x, back.Format("2006-01-02"), orig.Format("2006-01-02"))
		}
	}
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC), 1, time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 2, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), 1, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), 3, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := AddMonthsClamped(tt.in, tt.n); !got.Equal(tt.want) {
			t.Errorf("AddMonthsClamped(%s, %d) = %s, want %s", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"7", 7, true},
		{" 12abc", 12, true},
		{"-3", -3, true},
		{"abc", 0, false},
		{"", 0, false},
		{"+", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLeadingInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLeadingInt(%q) = %d, %v", tt.in, got, ok)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  John   Doe "); got != "john doe" {
		t.Errorf("NormalizeName = %q", got)
	}
	if NormalizeName("  John   Doe ") != NormalizeName("John Doe") {
		t.Error("normalized names should match")
	}
	if got := BuildFullName(" Jane ", ""); got != "Jane" {
		t.Errorf("BuildFullName = %q", got)
	}
	if got := BuildFullName("", " "); got != "" {
		t.Errorf("BuildFullName = %q", got)
	}
	if got := BuildFullName("Jane", "Roe"); got != "Jane Roe" {
		t.Errorf("BuildFullName = %q", got)
	}
}
