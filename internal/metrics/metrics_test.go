package metrics

import (
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := r.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected runtime collectors to be registered")
	}
}

func TestRecordBacktest(t *testing.T) {
	r := NewRegistry()
	r.RecordBacktest("success", 1.2)
	r.RecordBacktest("success", 0.4)
	r.RecordBacktest("error", 0.1)

	mfs, err := r.Gather()
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() != "keel_backtests_total" {
			continue
		}
		found = true
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		if total != 3 {
			t.Errorf("keel_backtests_total = %v, want 3", total)
		}
	}
	if !found {
		t.Error("keel_backtests_total not gathered")
	}
}

func TestRecordTrade(t *testing.T) {
	r := NewRegistry()
	r.RecordTrade("BUY", "signal")
	r.RecordTrade("SELL", "stop_loss")
	r.RecordTrade("SELL", "rebalance")

	mfs, err := r.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "keel_trades_total" {
			if len(mf.GetMetric()) != 3 {
				t.Errorf("expected 3 labeled series, got %d", len(mf.GetMetric()))
			}
			return
		}
	}
	t.Error("keel_trades_total not gathered")
}

func TestRecordTradingDays(t *testing.T) {
	r := NewRegistry()
	r.RecordTradingDays(60)
	r.RecordTradingDays(5)

	mfs, err := r.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "keel_trading_days_total" {
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 65 {
				t.Errorf("keel_trading_days_total = %v, want 65", got)
			}
			return
		}
	}
	t.Error("keel_trading_days_total not gathered")
}
