package magnitude

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/starford/tortoise/internal/models"
)

func TestScoresReferenceSet(t *testing.T) {
	got := Scores([]float64{100, 10, 1, 0})
	want := []float64{100, 50, 0, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("score[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScoresNegativeMaximum(t *testing.T) {
	got := Scores([]float64{-1000, 10})
	if got[0] != -100 {
		t.Errorf("max negative = %v, want -100", got[0])
	}
	if math.Abs(got[1]-100.0/3) > 1e-9 {
		t.Errorf("score = %v", got[1])
	}
}

func TestScoresDegenerate(t *testing.T) {
	for _, in := range [][]float64{{0, 0}, {1, -1, 0}, {0.5, 0.25}, {}} {
		for i, s := range Scores(in) {
			if s != 0 {
				t.Errorf("Scores(%v)[%d] = %v, want 0", in, i, s)
			}
		}
	}
}

func TestScoresNonFinite(t *testing.T) {
	got := Scores([]float64{math.NaN(), math.Inf(1), 100, 10})
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("non-finite scores = %v", got[:2])
	}
	if got[2] != 100 {
		t.Errorf("max ignoring non-finite = %v", got[2])
	}
}

func TestScoresBoundedAndMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	values := make([]float64, 200)
	for i := range values {
		values[i] = math.Pow(10, r.Float64()*6) * 0.5
	}
	scores := Scores(values)

	for i, s := range scores {
		if s < -100 || s > 100 || math.IsNaN(s) {
			t.Fatalf("score[%d] = %v out of range", i, s)
		}
	}

	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	for k := 1; k < len(idx); k++ {
		if scores[idx[k]] < scores[idx[k-1]] {
			t.Fatalf("not monotonic: %v -> %v scored %v -> %v",
				values[idx[k-1]], values[idx[k]], scores[idx[k-1]], scores[idx[k]])
		}
	}
}

func TestPanel(t *testing.T) {
	name := func(s string) *string { return &s }
	bars := Panel([]models.CashFlow{
		{Name: name("Coffee"), Amount: -10, Frequency: models.MonthStart},
		{Name: name("Salary"), Amount: 100000, Frequency: models.Annually},
		{Name: name("Rent"), Amount: -1000, Frequency: models.MonthEnd},
	}, false)

	var order []string
	for _, b := range bars {
		order = append(order, b.Name)
	}
	if order[0] != "Salary" || order[1] != "Rent" || order[2] != "Coffee" {
		t.Fatalf("order = %v", order)
	}
	if bars[0].Score != 100 {
		t.Errorf("salary score = %v", bars[0].Score)
	}
	if bars[1].Score >= 0 {
		t.Errorf("rent score = %v, want negative", bars[1].Score)
	}
	if bars[0].Tooltip != "$100 K | Annually" {
		t.Errorf("tooltip = %q", bars[0].Tooltip)
	}
	if bars[2].Label != "$10" {
		t.Errorf("label = %q", bars[2].Label)
	}
}
