package services

import (
	"testing"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
)

func TestPresenterView(t *testing.T) {
	p := Presenter{Display: testDisplay, Clock: fixedClock(ruleNow)}

	m := activeMember()
	m.Country = "UK"
	m.BirthDate = utils.SecondsInstant(time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC).Unix())
	m.LastUpdatedClient = utils.SecondsInstant(time.Date(2024, time.March, 1, 8, 30, 5, 0, time.UTC).Unix())

	v := p.View(m)
	checks := map[string][2]string{
		"birthDate":       {v.BirthDate, "05/17/2090"},
		"lastReplacement": {v.LastReplacement, "02/01/2124"},
		"dueDate":         {v.DueDate, "04/01/2124"},
		"batteryText":     {v.BatteryText, "51%"},
		"batteryStart":    {v.BatteryStart, "02/01/2124"},
		"batteryEnd":      {v.BatteryEnd, "04/01/2124"},
		"financialAccess": {v.FinancialAccess, "YES"},
		"lastUpdated":     {v.LastUpdated, "03/01/2124 08:30:05"},
	}
	for field, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", field, c[0], c[1])
		}
	}
	if v.BatteryPercent == nil || *v.BatteryPercent != 51 {
		t.Errorf("batteryPercent = %v, want 51", v.BatteryPercent)
	}
}

func TestPresenterViewPlaceholders(t *testing.T) {
	p := Presenter{Display: testDisplay, Clock: fixedClock(ruleNow)}

	v := p.View(&models.Member{Name: "Nobody"})
	if v.BatteryPercent != nil || v.BatteryText != "—" {
		t.Errorf("battery = %v %q, want absent", v.BatteryPercent, v.BatteryText)
	}
	if v.BirthDate != utils.DatePlaceholder || v.DueDate != utils.DatePlaceholder {
		t.Errorf("dates = %q %q, want placeholders", v.BirthDate, v.DueDate)
	}
	if v.LastUpdated != utils.DateTimePlaceholder {
		t.Errorf("lastUpdated = %q, want placeholder", v.LastUpdated)
	}
	if v.FinancialAccess != "NO" {
		t.Errorf("financialAccess = %q, want NO", v.FinancialAccess)
	}
}

func TestPresenterToday(t *testing.T) {
	p := Presenter{Display: testDisplay, Clock: fixedClock(ruleNow)}
	if got := p.Today(); got != "03/01/2124" {
		t.Fatalf("today = %q, want 03/01/2124", got)
	}
}
