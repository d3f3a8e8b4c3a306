package record

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name      string
		src       Record
		whitelist []string
		want      Ordered
	}{
		{
			name:      "drops unknown keys and skips missing ones",
			src:       Record{"ip": "1.2.3.4", "zz": "x"},
			whitelist: []string{"ip", "hostname"},
			want:      Ordered{{Key: "ip", Value: "1.2.3.4"}},
		},
		{
			name:      "output follows whitelist order",
			src:       Record{"city": "Berlin", "ip": "1.2.3.4", "country": "Germany (DE)"},
			whitelist: []string{"ip", "country", "city"},
			want: Ordered{
				{Key: "ip", Value: "1.2.3.4"},
				{Key: "country", Value: "Germany (DE)"},
				{Key: "city", Value: "Berlin"},
			},
		},
		{
			name:      "null values are kept",
			src:       Record{"hostname": nil},
			whitelist: []string{"hostname"},
			want:      Ordered{{Key: "hostname", Value: nil}},
		},
		{
			name:      "empty record",
			src:       Record{},
			whitelist: []string{"ip"},
			want:      Ordered{},
		},
		{
			name:      "duplicate whitelist entries appear once",
			src:       Record{"ip": "1.2.3.4"},
			whitelist: []string{"ip", "ip"},
			want:      Ordered{{Key: "ip", Value: "1.2.3.4"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.src, tt.whitelist)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	src := Record{"te": "trailers", "ip": "1.2.3.4", "extra": "x", "host": nil}
	whitelist := []string{"ip", "hostname", "host", "te"}

	once := Filter(src, whitelist)
	twice := Filter(once, whitelist)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("filtering twice changed the record (-once +twice):\n%s", diff)
	}
}

func TestOrdered_MarshalJSON(t *testing.T) {
	o := Ordered{
		{Key: "zeta", Value: "Zürich <b>"},
		{Key: "alpha", Value: nil},
		{Key: "lat", Value: 12.34},
	}
	got, err := o.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"zeta":"Zürich <b>","alpha":null,"lat":12.34}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got := strings.TrimSuffix(buf.String(), "\n"); got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}

	escaped, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(escaped), `\u003cb\u003e`) {
		t.Errorf("Marshal() = %s, want HTML escaping", escaped)
	}
}

func TestOrdered_MarshalNil(t *testing.T) {
	var o Ordered
	got, err := json.Marshal(struct {
		Data Ordered `json:"data"`
	}{Data: o})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `{"data":null}` {
		t.Errorf("Marshal() = %s, want data null", got)
	}
}

func TestOrdered_UnmarshalKeepsOrder(t *testing.T) {
	var o Ordered
	if err := json.Unmarshal([]byte(`{"b":"1","a":null,"c":2.5}`), &o); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, o.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := o.Lookup("c"); v != json.Number("2.5") {
		t.Errorf("c = %#v, want json.Number(2.5)", v)
	}

	var null Ordered
	if err := json.Unmarshal([]byte(`null`), &null); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if null != nil {
		t.Errorf("Unmarshal(null) = %v, want nil", null)
	}
}
