package model

import "testing"

func TestIsActiveOrderStatus(t *testing.T) {
    cases := []struct {
        status string
        want   bool
    }{
        {OrderStatusReserved, true},
        {OrderStatusPrepaid, true},
        {OrderStatusPickedUp, false},
        {OrderStatusCompleted, false},
        {OrderStatusNoShow, false},
        {OrderStatusCanceled, false},
        {"", false},
    }
    for _, c := range cases {
        if got := IsActiveOrderStatus(c.status); got != c.want {
            t.Errorf("IsActiveOrderStatus(%q) = %v, want %v", c.status, got, c.want)
        }
    }
}

func TestVariantGroupUnlimited(t *testing.T) {
    limit := int64(10)
    sentinel := int64(UnlimitedStock)
    zero := int64(0)

    cases := []struct {
        name  string
        stock *int64
        want  bool
    }{
        {"null column", nil, true},
        {"legacy sentinel", &sentinel, true},
        {"finite", &limit, false},
        {"zero capacity is finite", &zero, false},
    }
    for _, c := range cases {
        g := VariantGroup{TotalPhysicalStock: c.stock}
        if got := g.Unlimited(); got != c.want {
            t.Errorf("%s: Unlimited() = %v, want %v", c.name, got, c.want)
        }
    }
}

func TestPhoneLast4(t *testing.T) {
    cases := []struct {
        phone string
        want  string
    }{
        {"01012345678", "5678"},
        {"1234", "1234"},
        {"12", "12"},
        {"", ""},
    }
    for _, c := range cases {
        u := User{Phone: c.phone}
        if got := u.PhoneLast4(); got != c.want {
            t.Errorf("PhoneLast4(%q) = %q, want %q", c.phone, got, c.want)
        }
    }
}

func TestCatalogFindHelpers(t *testing.T) {
    p := &Product{
        ID: 1,
        Rounds: []SalesRound{
            {ID: 10, VariantGroups: []VariantGroup{
                {ID: 100, Items: []ProductItem{{ID: 1000}, {ID: 1001}}},
                {ID: 101},
            }},
            {ID: 11},
        },
    }

    round := p.FindRound(10)
    if round == nil || round.ID != 10 {
        t.Fatalf("FindRound(10) = %v", round)
    }
    if p.FindRound(99) != nil {
        t.Error("FindRound(99) should be nil")
    }

    group := round.FindVariantGroup(100)
    if group == nil || group.ID != 100 {
        t.Fatalf("FindVariantGroup(100) = %v", group)
    }
    if round.FindVariantGroup(999) != nil {
        t.Error("FindVariantGroup(999) should be nil")
    }

    item := group.FindItem(1001)
    if item == nil || item.ID != 1001 {
        t.Fatalf("FindItem(1001) = %v", item)
    }
    if group.FindItem(0) != nil {
        t.Error("FindItem(0) should be nil")
    }

    // Returned pointers alias the product tree so callers see live data.
    group.WaitlistCount = 7
    if p.Rounds[0].VariantGroups[0].WaitlistCount != 7 {
        t.Error("FindVariantGroup should return a pointer into the product")
    }
}
