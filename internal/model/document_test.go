package model

import (
	"encoding/json"
	"testing"
)

func TestDocumentKeepsBareArrayShape(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(` [{"roll_no": "1", "cgpa": 8.50}]`), &doc); err != nil {
		t.Fatal(err)
	}
	if !doc.Bare || doc.Meta != nil || len(doc.Records) != 1 {
		t.Fatalf("decoded = %+v", doc)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[{"cgpa":8.50,"roll_no":"1"}]` {
		t.Fatalf("encoded = %s", out)
	}
}

func TestDocumentWrapperShape(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(`{"_meta": {"lastSavedAt": "t"}, "records": []}`), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Bare || doc.SavedAt() != "t" {
		t.Fatalf("decoded = %+v", doc)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"_meta":{"lastSavedAt":"t"},"records":[]}` {
		t.Fatalf("encoded = %s", out)
	}

	out, err = json.Marshal(Document{Bare: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[]` {
		t.Fatalf("empty bare = %s", out)
	}
}
