package stock

import (
    "testing"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
)

func capacity(n int64) *int64 { return &n }

func TestCompute(t *testing.T) {
    cases := []struct {
        name      string
        capacity  *int64
        committed int64
        unlimited bool
        remaining int64
    }{
        {"empty group", capacity(5), 0, false, 5},
        {"partially committed", capacity(5), 3, false, 2},
        {"fully committed", capacity(5), 5, false, 0},
        {"over-committed after capacity cut", capacity(3), 5, false, -2},
        {"nil capacity is unlimited", nil, 1_000_000, true, 0},
        {"legacy -1 sentinel is unlimited", capacity(model.UnlimitedStock), 42, true, 0},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got := Compute(tc.capacity, tc.committed)
            if got.Unlimited != tc.unlimited {
                t.Fatalf("Unlimited = %v, want %v", got.Unlimited, tc.unlimited)
            }
            if !tc.unlimited && got.Remaining != tc.remaining {
                t.Fatalf("Remaining = %d, want %d", got.Remaining, tc.remaining)
            }
        })
    }
}

func TestComputeUnlimitedIgnoresCommittedVolume(t *testing.T) {
    for _, committed := range []int64{0, 1, 999, 1 << 40} {
        a := Compute(nil, committed)
        if !a.Unlimited {
            t.Fatalf("committed=%d: expected unlimited availability", committed)
        }
        if !a.CanSatisfy(1 << 50) {
            t.Fatalf("committed=%d: unlimited group refused a request", committed)
        }
    }
}

func TestCanSatisfy(t *testing.T) {
    a := Compute(capacity(5), 5)
    if a.CanSatisfy(1) {
        t.Fatal("exhausted group accepted a request")
    }
    if !a.CanSatisfy(0) {
        t.Fatal("zero request should always fit")
    }
    b := Compute(capacity(5), 0)
    if !b.CanSatisfy(5) {
        t.Fatal("request equal to capacity should fit")
    }
    if b.CanSatisfy(6) {
        t.Fatal("request above capacity should not fit")
    }
}

func TestClampedPreservesSign(t *testing.T) {
    a := Compute(capacity(3), 5)
    if a.Remaining != -2 {
        t.Fatalf("Remaining = %d, want -2 (true signed value kept for diagnostics)", a.Remaining)
    }
    if a.Clamped() != 0 {
        t.Fatalf("Clamped = %d, want 0", a.Clamped())
    }
}

func TestAdjustQuantity(t *testing.T) {
    cases := []struct {
        name      string
        available int64
        unit      int64
        want      int64
    }{
        {"largest multiple below available", 3, 2, 2},
        {"exact multiple", 4, 2, 4},
        {"unit of one keeps available", 3, 1, 3},
        {"nothing fits", 1, 2, 0},
        {"zero available", 0, 1, 0},
        {"negative available", -4, 2, 0},
        {"zero unit treated as one", 5, 0, 5},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := AdjustQuantity(tc.available, tc.unit); got != tc.want {
                t.Fatalf("AdjustQuantity(%d, %d) = %d, want %d", tc.available, tc.unit, got, tc.want)
            }
        })
    }
}
