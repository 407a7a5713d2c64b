package fitness

import "testing"

func TestScalarCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Scalar
		want int
	}{
		{"less", 1, 2, -1},
		{"equal", 2, 2, 0},
		{"greater", 3, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScalarDominates(t *testing.T) {
	if !Scalar(2).Dominates(Scalar(1)) {
		t.Error("2 should dominate 1")
	}
	if Scalar(1).Dominates(Scalar(1)) {
		t.Error("equal values should not dominate")
	}
}

func TestLowestIsDominated(t *testing.T) {
	if Lowest().Dominates(Scalar(-1e300)) {
		t.Error("Lowest() should not dominate anything")
	}
	if !Scalar(0).Dominates(Lowest()) {
		t.Error("any finite scalar should dominate Lowest()")
	}
}

func TestVectorDominates(t *testing.T) {
	a := Vector{1, 2}
	b := Vector{1, 1}
	c := Vector{0, 3}

	if !a.Dominates(b) {
		t.Error("{1,2} should dominate {1,1}")
	}
	if a.Dominates(c) {
		t.Error("{1,2} should not dominate {0,3}: neither dominates the other")
	}
	if c.Dominates(a) {
		t.Error("{0,3} should not dominate {1,2}")
	}
}

func TestVectorCompareLexicographic(t *testing.T) {
	a := Vector{1, 5}
	b := Vector{2, 0}

	if a.Compare(b) >= 0 {
		t.Error("{1,5} should compare less than {2,0} lexicographically")
	}
}

func TestLowestVectorDominated(t *testing.T) {
	low := LowestVector(3)
	some := Vector{0, 0, 0}

	if !some.Dominates(low) {
		t.Error("any zero vector should dominate LowestVector(3)")
	}
}
