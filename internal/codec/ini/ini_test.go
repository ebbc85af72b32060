package ini

import (
	"strings"
	"testing"
)

func TestDecodeRoundTrip(t *testing.T) {
	raw := []byte("host=localhost\n[database]\ndriver=postgres\nport=5432\n")
	root, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	host, err := root.Member("host")
	if err != nil {
		t.Fatalf("Member(host): %v", err)
	}
	s, _ := host.AsString()
	if s != "localhost" {
		t.Fatalf("host = %q", s)
	}
	db, err := root.Member("database")
	if err != nil {
		t.Fatalf("Member(database): %v", err)
	}
	driver, _ := db.Member("driver")
	ds, _ := driver.AsString()
	if ds != "postgres" {
		t.Fatalf("driver = %q", ds)
	}

	out, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(out), "driver") {
		t.Fatalf("encoded ini missing driver key: %s", out)
	}
}

func TestDecodeDuplicateKeyError(t *testing.T) {
	raw := []byte("[section]\nkey=1\nkey=2\n")
	_, err := Decode(raw)
	if err == nil {
		t.Fatalf("expected ErrDuplicateKey")
	}
	if _, ok := err.(*ErrDuplicateKey); !ok {
		t.Fatalf("got %T, want *ErrDuplicateKey", err)
	}
}
