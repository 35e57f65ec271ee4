package handler

import (
    "testing"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
)

func TestOrderContact(t *testing.T) {
    user := &model.User{Name: "Sooyeon Park", Phone: "01012345678"}

    cases := []struct {
        name      string
        override  *customerInfoReq
        wantName  string
        wantPhone string
    }{
        {"no override", nil, "Sooyeon Park", "5678"},
        {"full override", &customerInfoReq{Name: "Minji Park", Phone: "01099990000"}, "Minji Park", "0000"},
        {"name only", &customerInfoReq{Name: "Minji Park"}, "Minji Park", "5678"},
        {"phone only", &customerInfoReq{Phone: "01099990000"}, "Sooyeon Park", "0000"},
        {"blank override falls back", &customerInfoReq{}, "Sooyeon Park", "5678"},
        {"short phone kept whole", &customerInfoReq{Phone: "119"}, "Sooyeon Park", "119"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            name, phone := orderContact(user, tc.override)
            if name != tc.wantName {
                t.Errorf("name = %q, want %q", name, tc.wantName)
            }
            if phone != tc.wantPhone {
                t.Errorf("phone = %q, want %q", phone, tc.wantPhone)
            }
        })
    }
}
