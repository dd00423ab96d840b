package marketdata

import (
	"context"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC)
}

func TestSyntheticDeterministic(t *testing.T) {
	p := &Synthetic{Now: fixedNow}
	a, err := p.FetchDailyBars(context.Background(), "7203", 90)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b, err := p.FetchDailyBars(context.Background(), "7203", 90)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(a) != len(b) || len(a) == 0 {
		t.Fatalf("lengths %d/%d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSyntheticSkipsWeekendsAndAscends(t *testing.T) {
	p := &Synthetic{Now: fixedNow}
	bars, err := p.FetchDailyBars(context.Background(), "9984", 60)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for i, bar := range bars {
		if wd := bar.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("bar %d falls on %s", i, wd)
		}
		if i > 0 && !bars[i-1].Date.Before(bar.Date) {
			t.Fatalf("dates not ascending at %d", i)
		}
		if bar.High < bar.Low || bar.High < bar.Close || bar.Low > bar.Close {
			t.Fatalf("bar %d OHLC inconsistent: %+v", i, bar)
		}
	}
}

func TestSyntheticCodesDiffer(t *testing.T) {
	p := &Synthetic{Now: fixedNow}
	a, _ := p.FetchDailyBars(context.Background(), "7203", 30)
	b, _ := p.FetchDailyBars(context.Background(), "9984", 30)
	same := true
	for i := range a {
		if a[i].Close != b[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different codes produced identical series")
	}
}
