package services

import (
	"fmt"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/samber/lo"
)

const percentPlaceholder = "—"

// MemberView is a member record formatted for display.
type MemberView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Country         string  `json:"country"`
	BirthDate       string  `json:"birthDate"`
	LastReplacement string  `json:"lastReplacement"`
	DueDate         string  `json:"dueDate"`
	BatteryPercent  *int    `json:"batteryPercent"`
	BatteryText     string  `json:"batteryText"`
	BatteryStart    string  `json:"batteryStart"`
	BatteryEnd      string  `json:"batteryEnd"`
	FinancialAccess string  `json:"financialAccess"`
	VisaType        string  `json:"visaType"`
	Tendency        float64 `json:"tendency"`
	LastUpdated     string  `json:"lastUpdated"`
}

// Dashboard is everything one session's screen shows.
type Dashboard struct {
	Today             string       `json:"today"`
	Loaded            bool         `json:"loaded"`
	Current           *MemberView  `json:"current"`
	PendingName       string       `json:"pendingName,omitempty"`
	Others            []MemberView `json:"others"`
	Message           string       `json:"message,omitempty"`
	SubscriptionError string       `json:"subscriptionError,omitempty"`
	WriteError        string       `json:"writeError,omitempty"`
}

// Presenter formats members with a fixed clock and display options.
type Presenter struct {
	Display utils.DisplayOptions
	Clock   Clock
}

// Today is the current date as the dashboard header shows it.
func (p Presenter) Today() string {
	return utils.FormatUSDate(p.Clock(), p.Display)
}

// View formats m.
func (p Presenter) View(m *models.Member) MemberView {
	v := MemberView{
		ID:              m.ID.Hex(),
		Name:            m.Name,
		Country:         m.Country,
		BirthDate:       utils.FormatUSDate(m.BirthDate, p.Display),
		LastReplacement: utils.FormatUSDate(m.LastBatteryReplacementDate, p.Display),
		DueDate:         utils.FormatUSDate(m.BatteryDueDate, p.Display),
		BatteryText:     percentPlaceholder,
		BatteryStart:    utils.DatePlaceholder,
		BatteryEnd:      utils.DatePlaceholder,
		FinancialAccess: "NO",
		VisaType:        m.VisaType,
		Tendency:        float64(m.Tendency),
		LastUpdated:     utils.FormatDateTime(m.LastUpdatedClient, p.Display),
	}
	if progress, ok := ComputeProgress(m.LastBatteryReplacementDate, m.BatteryDueDate, p.Clock()); ok {
		percent := progress.Percent
		v.BatteryPercent = &percent
		v.BatteryText = fmt.Sprintf("%d%%", percent)
		v.BatteryStart = utils.FormatUSDate(progress.Start, p.Display)
		v.BatteryEnd = utils.FormatUSDate(progress.End, p.Display)
	}
	if m.CanFinancialTransactions {
		v.FinancialAccess = "YES"
	}
	return v
}

// Views formats a list of members.
func (p Presenter) Views(members []*models.Member) []MemberView {
	return lo.Map(members, func(m *models.Member, _ int) MemberView {
		return p.View(m)
	})
}
