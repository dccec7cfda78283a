package codec

import (
	"testing"

	"github.com/hupe1980/querygo/record"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		if !ok {
			t.Fatalf("ByName(%q) not found", name)
		}
		if c.Name() != name {
			t.Errorf("Name() = %q, want %q", c.Name(), name)
		}
	}

	if _, ok := ByName("msgpack"); ok {
		t.Error("ByName should not know msgpack")
	}
}

func TestCodecsRoundTripRecord(t *testing.T) {
	in := record.Record{
		"name": record.String("alice"),
		"age":  record.Int(30),
		"tags": record.Array([]record.Value{record.String("a"), record.Null()}),
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("%s marshal: %v", c.Name(), err)
		}
		var out record.Record
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s unmarshal: %v", c.Name(), err)
		}
		if out.Key() != in.Key() {
			t.Errorf("%s round trip mismatch: %s", c.Name(), data)
		}
	}
}
