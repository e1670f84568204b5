package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VisaUnable replaces the effective visa while financial access is revoked.
const VisaUnable = "Unable"

// Member represents one person in the registry
type Member struct {
	ID                         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name                       string             `bson:"name" json:"name"`
	Country                    string             `bson:"country" json:"country"`
	BirthDate                  utils.Instant      `bson:"birthDate" json:"birthDate"`
	LastBatteryReplacementDate utils.Instant      `bson:"lastBatteryReplacementDate" json:"lastBatteryReplacementDate"`
	BatteryDueDate             utils.Instant      `bson:"batteryDueDate" json:"batteryDueDate"`
	Tendency                   Tendency           `bson:"tendency" json:"tendency"`
	VisaType                   string             `bson:"visaType" json:"visaType"`
	VisaTypeOriginal           *string            `bson:"visaTypeOriginal,omitempty" json:"visaTypeOriginal,omitempty"`
	CanFinancialTransactions   bool               `bson:"canFinancialTransactions" json:"canFinancialTransactions"`
	LastUpdatedClient          utils.Instant      `bson:"lastUpdatedClient" json:"lastUpdatedClient"`
}

// OriginalVisa is the user's true visa value: visaTypeOriginal when present,
// otherwise the effective visaType.
func (m *Member) OriginalVisa() string {
	return lo.FromPtrOr(m.VisaTypeOriginal, m.VisaType)
}

// NormalizedName is the lookup key for the member.
func (m *Member) NormalizedName() string {
	return utils.NormalizeName(m.Name)
}

// Clone returns a deep copy so snapshots can be handed out safely.
func (m *Member) Clone() *Member {
	c := *m
	if m.VisaTypeOriginal != nil {
		c.VisaTypeOriginal = lo.ToPtr(*m.VisaTypeOriginal)
	}
	return &c
}

// Tendency is the 0-10 score steering the due date. Values written by other
// clients that are not numeric decode as 0.
type Tendency float64

func (t Tendency) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if t == Tendency(math.Trunc(float64(t))) {
		return bson.MarshalValue(int64(t))
	}
	return bson.MarshalValue(float64(t))
}

func (t *Tendency) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: bt, Value: data}
	switch bt {
	case bsontype.Int32:
		*t = Tendency(rv.Int32())
	case bsontype.Int64:
		*t = Tendency(rv.Int64())
	case bsontype.Double:
		*t = sanitizeTendency(rv.Double())
	case bsontype.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(rv.StringValue()), 64)
		if err != nil {
			n = 0
		}
		*t = sanitizeTendency(n)
	default:
		*t = 0
	}
	return nil
}

func sanitizeTendency(f float64) Tendency {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Tendency(f)
}

// MemberPatch is a partial update issued by this service. Nil fields are left
// untouched in the store.
type MemberPatch struct {
	CanFinancialTransactions *bool
	VisaType                 *string
	VisaTypeOriginal         *string
	BatteryDueDate           *int64
	LastUpdatedClient        int64
}

// Set builds the $set document for the patch.
func (p *MemberPatch) Set() bson.M {
	set := bson.M{"lastUpdatedClient": p.LastUpdatedClient}
	if p.CanFinancialTransactions != nil {
		set["canFinancialTransactions"] = *p.CanFinancialTransactions
	}
	if p.VisaType != nil {
		set["visaType"] = *p.VisaType
	}
	if p.VisaTypeOriginal != nil {
		set["visaTypeOriginal"] = *p.VisaTypeOriginal
	}
	if p.BatteryDueDate != nil {
		set["batteryDueDate"] = *p.BatteryDueDate
	}
	return set
}

// Signature identifies the desired values of the patch, ignoring the write
// timestamp, so identical corrections can be recognised.
func (p *MemberPatch) Signature() string {
	set := p.Set()
	delete(set, "lastUpdatedClient")
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, set[k])
	}
	return b.String()
}

// Apply copies the patch onto m. Used by the in-memory store.
func (p *MemberPatch) Apply(m *Member) {
	if p.CanFinancialTransactions != nil {
		m.CanFinancialTransactions = *p.CanFinancialTransactions
	}
	if p.VisaType != nil {
		m.VisaType = *p.VisaType
	}
	if p.VisaTypeOriginal != nil {
		v := *p.VisaTypeOriginal
		m.VisaTypeOriginal = &v
	}
	if p.BatteryDueDate != nil {
		m.BatteryDueDate = utils.SecondsInstant(*p.BatteryDueDate)
	}
	m.LastUpdatedClient = utils.SecondsInstant(p.LastUpdatedClient)
}

// Snapshot is one delivery from a live member subscription: either the full
// ordered collection or a terminal error.
type Snapshot struct {
	Members []*Member
	Err     error
}
