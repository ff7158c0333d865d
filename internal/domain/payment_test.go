package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeAmountOwed(t *testing.T) {
	cases := []struct {
		amount, percent, want string
	}{
		{"1000", "50", "500"},
		{"1234.56", "50", "617.28"},
		{"0.05", "50", "0.03"},
		{"99.99", "50", "50"},
		{"100", "33.333", "33.33"},
		{"0", "50", "0"},
	}
	for _, tc := range cases {
		got := ComputeAmountOwed(decimal.RequireFromString(tc.amount), decimal.RequireFromString(tc.percent))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("ComputeAmountOwed(%s, %s) = %s, want %s", tc.amount, tc.percent, got, tc.want)
		}
	}
}

func TestTicketKindPrefix(t *testing.T) {
	if TicketKindService.CodePrefix() != "TKT" {
		t.Errorf("service prefix = %s", TicketKindService.CodePrefix())
	}
	if TicketKindProject.CodePrefix() != "PRY" {
		t.Errorf("project prefix = %s", TicketKindProject.CodePrefix())
	}
}

func TestTicketCloneDoesNotAlias(t *testing.T) {
	tech := "tech-1"
	pct := decimal.NewFromInt(40)
	orig := &Ticket{ID: "t1", TechnicianID: &tech, CommissionPercent: &pct}
	c := orig.Clone()
	*c.TechnicianID = "tech-2"
	*c.CommissionPercent = decimal.NewFromInt(10)
	if *orig.TechnicianID != "tech-1" {
		t.Error("technician id aliased")
	}
	if !orig.CommissionPercent.Equal(decimal.NewFromInt(40)) {
		t.Error("commission aliased")
	}
}
