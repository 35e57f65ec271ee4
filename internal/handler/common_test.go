package handler

import (
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
)

func newTestContext(t *testing.T) echo.Context {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest("GET", "/", nil)
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec)
}

func TestGetUserID(t *testing.T) {
    cases := []struct {
        name    string
        value   interface{}
        want    uint64
        wantErr bool
    }{
        {"uint64", uint64(42), 42, false},
        {"int", int(7), 7, false},
        {"int64", int64(9), 9, false},
        {"float64 from JWT claims", float64(15), 15, false},
        {"numeric string", "33", 33, false},
        {"garbage string", "abc", 0, true},
        {"missing", nil, 0, true},
    }
    for _, c := range cases {
        t.Run(c.name, func(t *testing.T) {
            ctx := newTestContext(t)
            if c.value != nil {
                ctx.Set("user_id", c.value)
            }
            got, err := getUserID(ctx)
            if c.wantErr {
                if err == nil {
                    t.Fatalf("expected error, got %d", got)
                }
                return
            }
            if err != nil {
                t.Fatalf("unexpected error: %v", err)
            }
            if got != c.want {
                t.Errorf("got %d, want %d", got, c.want)
            }
        })
    }
}

func TestPathID(t *testing.T) {
    cases := []struct {
        raw    string
        want   uint64
        wantOK bool
    }{
        {"15", 15, true},
        {"0", 0, false},
        {"-3", 0, false},
        {"abc", 0, false},
        {"", 0, false},
    }
    for _, c := range cases {
        ctx := newTestContext(t)
        ctx.SetParamNames("id")
        ctx.SetParamValues(c.raw)
        got, ok := pathID(ctx, "id")
        if ok != c.wantOK || got != c.want {
            t.Errorf("pathID(%q) = (%d, %v), want (%d, %v)", c.raw, got, ok, c.want, c.wantOK)
        }
    }
}
