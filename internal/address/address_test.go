package address

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_RoundTrip(t *testing.T) {
	addrs := []Address{
		Item(0),
		Item(42),
		Header(0, 0),
		Header(3, 7),
		Cell(0, 0, 0),
		Cell(2, 10, 4),
	}
	for _, a := range addrs {
		t.Run(a.String(), func(t *testing.T) {
			got, err := Parse(a.String())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != a {
				t.Errorf("round trip: expected %+v, got %+v", a, got)
			}
		})
	}
}

func TestParse_CanonicalStrings(t *testing.T) {
	tests := map[string]Address{
		"item[3]":                 Item(3),
		"table[1]/header[2]":      Header(1, 2),
		"table[0]/row[1]/cell[2]": Cell(0, 1, 2),
		" item[5] ":               Item(5),
	}
	for in, want := range tests {
		got, err := Parse(in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Parse(%q): expected %+v, got %+v", in, want, got)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	bad := []string{
		"",
		"item",
		"item[",
		"item[]",
		"item[x]",
		"item[-1]",
		"item[+1]",
		"[3]",
		"item3]",
		"table[0]",
		"table[0]/row[1]",
		"table[0]/cell[1]",
		"table[0]/header[1]/cell[2]",
		"paragraph[1]",
		"table[0]/row[a]/cell[1]",
	}
	for _, in := range bad {
		_, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q): expected error", in)
			continue
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("Parse(%q): expected *FormatError, got %T", in, err)
		}
	}
}

func TestAddress_JSON(t *testing.T) {
	type wrapper struct {
		Index Address `json:"index"`
	}
	in := wrapper{Index: Cell(1, 2, 3)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"index":"table[1]/row[2]/cell[3]"}` {
		t.Errorf("unexpected json: %s", data)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}

	if err := json.Unmarshal([]byte(`{"index":"item[x]"}`), &out); err == nil {
		t.Error("expected error for malformed address in json")
	}
}

func TestOutOfRangeError_Message(t *testing.T) {
	err := &OutOfRangeError{Addr: Item(9), Len: 3}
	if err.Error() != "address item[9] out of range (have 3)" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
