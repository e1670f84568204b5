package models

import (
	"testing"

	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTendencyDecodeTolerant(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want Tendency
	}{
		{name: "int32", raw: int32(4), want: 4},
		{name: "int64", raw: int64(9), want: 9},
		{name: "double", raw: 2.5, want: 2.5},
		{name: "numeric string", raw: " 6 ", want: 6},
		{name: "text", raw: "calm", want: 0},
		{name: "bool", raw: true, want: 0},
		{name: "null", raw: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(bson.M{"name": "x", "tendency": tt.raw})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var m Member
			if err := bson.Unmarshal(data, &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if m.Tendency != tt.want {
				t.Fatalf("tendency = %v, want %v", m.Tendency, tt.want)
			}
		})
	}
}

func TestMemberBSONRoundTrip(t *testing.T) {
	visa := ""
	in := Member{
		Name:                       "Ada Lovelace",
		BirthDate:                  utils.SecondsInstant(100),
		LastBatteryReplacementDate: utils.SecondsInstant(200),
		BatteryDueDate:             utils.SecondsInstant(300),
		Tendency:                   7,
		VisaType:                   "Unable",
		VisaTypeOriginal:           &visa,
	}
	data, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["tendency"].(int64); !ok {
		t.Errorf("tendency stored as %T, want int64", raw["tendency"])
	}
	if _, ok := raw["batteryDueDate"].(int64); !ok {
		t.Errorf("batteryDueDate stored as %T, want int64", raw["batteryDueDate"])
	}
	if _, ok := raw["_id"]; ok {
		t.Error("zero id must be omitted so the store assigns one")
	}

	var out Member
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.VisaTypeOriginal == nil || *out.VisaTypeOriginal != "" {
		t.Fatalf("visaTypeOriginal = %v, want present and empty", out.VisaTypeOriginal)
	}
	if !out.BatteryDueDate.EqualsEpoch(300) {
		t.Fatalf("batteryDueDate = %+v", out.BatteryDueDate)
	}
}

func TestOriginalVisa(t *testing.T) {
	m := &Member{VisaType: "Work"}
	if got := m.OriginalVisa(); got != "Work" {
		t.Fatalf("OriginalVisa = %q, want the effective visa when no original is stored", got)
	}
	orig := "Study"
	m.VisaTypeOriginal = &orig
	if got := m.OriginalVisa(); got != "Study" {
		t.Fatalf("OriginalVisa = %q, want Study", got)
	}
}

func TestMemberPatch(t *testing.T) {
	access := false
	visa := VisaUnable
	orig := "Work"
	a := &MemberPatch{CanFinancialTransactions: &access, VisaType: &visa, VisaTypeOriginal: &orig, LastUpdatedClient: 10}
	b := &MemberPatch{CanFinancialTransactions: &access, VisaType: &visa, VisaTypeOriginal: &orig, LastUpdatedClient: 99}

	if a.Signature() != b.Signature() {
		t.Fatalf("signatures differ only by timestamp: %q vs %q", a.Signature(), b.Signature())
	}
	set := a.Set()
	if len(set) != 4 || set["lastUpdatedClient"] != int64(10) {
		t.Fatalf("set = %v", set)
	}

	m := &Member{VisaType: "Work", CanFinancialTransactions: true}
	a.Apply(m)
	if m.CanFinancialTransactions || m.VisaType != VisaUnable || m.OriginalVisa() != "Work" {
		t.Fatalf("applied = %+v", m)
	}
	orig = "changed"
	if *m.VisaTypeOriginal != "Work" {
		t.Fatal("Apply must copy the original visa")
	}
}

func TestClone(t *testing.T) {
	orig := "Work"
	m := &Member{Name: "a", VisaTypeOriginal: &orig}
	c := m.Clone()
	*c.VisaTypeOriginal = "other"
	if *m.VisaTypeOriginal != "Work" {
		t.Fatal("Clone shares the original visa pointer")
	}
}
