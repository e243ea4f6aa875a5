package cycle

import (
	"strings"
	"testing"
)

func TestPregnancyTip_ScenarioD(t *testing.T) {
	key, ok := TipKey(25)
	if !ok || key != 24 {
		t.Fatalf("TipKey(25) = %d, %v; want 24, true", key, ok)
	}
	if tip := PregnancyTip(25); !strings.Contains(tip, "hearing") {
		t.Errorf("PregnancyTip(25) = %q, want the hearing tip", tip)
	}
}

func TestPregnancyTip_Keys(t *testing.T) {
	tests := []struct {
		week    int
		wantKey int
		wantOK  bool
	}{
		{0, 0, false},
		{-4, 0, false},
		{1, 1, true},
		{3, 1, true},
		{4, 4, true},
		{7, 4, true},
		{12, 12, true},
		{39, 36, true},
		{40, 40, true},
		{43, 40, true},
		{44, 44, false},
	}
	for _, tt := range tests {
		key, ok := TipKey(tt.week)
		if ok != tt.wantOK {
			t.Errorf("TipKey(%d) ok = %v, want %v", tt.week, ok, tt.wantOK)
			continue
		}
		if ok && key != tt.wantKey {
			t.Errorf("TipKey(%d) = %d, want %d", tt.week, key, tt.wantKey)
		}
	}
}

func TestPregnancyTip_Fallback(t *testing.T) {
	for _, week := range []int{0, -1, 44, 100} {
		if got := PregnancyTip(week); got != GenericTip {
			t.Errorf("PregnancyTip(%d) = %q, want generic tip", week, got)
		}
	}
}

func TestTipWeeks_MatchTable(t *testing.T) {
	weeks := TipWeeks()
	if len(weeks) != len(pregnancyTips) {
		t.Fatalf("TipWeeks has %d entries, table has %d", len(weeks), len(pregnancyTips))
	}
	for _, w := range weeks {
		if _, ok := pregnancyTips[w]; !ok {
			t.Errorf("week %d missing from tip table", w)
		}
	}
}

func TestDangerSigns_ReturnsCopy(t *testing.T) {
	signs := DangerSigns()
	if len(signs) != 4 {
		t.Fatalf("DangerSigns length = %d, want 4", len(signs))
	}
	signs[0] = "changed"
	if DangerSigns()[0] == "changed" {
		t.Error("DangerSigns exposed internal slice")
	}
}
