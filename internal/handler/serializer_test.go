package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestJSONSerializer_Serialize(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), rec)

	if err := (JSONSerializer{}).Serialize(c, errorBody{Error: "boom"}, ""); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"boom"}` {
		t.Errorf("body = %s", got)
	}
}

func TestJSONSerializer_Deserialize(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid", body: `{"name":"a","count":2}`},
		{name: "syntax", body: `{"name" "a"}`, wantStatus: http.StatusBadRequest},
		{name: "type", body: `{"count":"two"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c := e.NewContext(req, httptest.NewRecorder())

			var p payload
			err := (JSONSerializer{}).Deserialize(c, &p)

			switch {
			case tt.wantStatus != 0:
				var he *echo.HTTPError
				if !errors.As(err, &he) || he.Code != tt.wantStatus {
					t.Errorf("err = %v, want HTTPError %d", err, tt.wantStatus)
				}
			default:
				if err != nil {
					t.Fatalf("Deserialize() error = %v", err)
				}
				if p.Name != "a" || p.Count != 2 {
					t.Errorf("decoded = %+v", p)
				}
			}
		})
	}
}
