package entities

import "testing"

func TestNormalizeRecord_CanonicalNames(t *testing.T) {
	rec := NormalizeRecord(map[string]any{
		"part_number":    "SW-24",
		"manufacturer":   "NetPro",
		"name":           "Managed Switch 24-Port",
		"description":    "Layer2/Layer3 managed switch",
		"classification": "networking",
	})

	if rec.PartNumber != "SW-24" {
		t.Errorf("part number: got %q", rec.PartNumber)
	}
	if rec.Manufacturer != "NetPro" {
		t.Errorf("manufacturer: got %q", rec.Manufacturer)
	}
	if rec.Classification != "networking" {
		t.Errorf("classification: got %q", rec.Classification)
	}
}

func TestNormalizeRecord_Aliases(t *testing.T) {
	rec := NormalizeRecord(map[string]any{
		"PartNumber": "SW-24",
		"mfr":        "NetPro",
		"title":      "Managed Switch 24-Port",
		"desc":       "switchy",
		"Category":   "networking",
	})

	if rec.PartNumber != "SW-24" || rec.Manufacturer != "NetPro" || rec.Name != "Managed Switch 24-Port" {
		t.Errorf("alias mapping failed: %+v", rec)
	}
	if rec.Description != "switchy" || rec.Classification != "networking" {
		t.Errorf("alias mapping failed: %+v", rec)
	}
}

func TestNormalizeRecord_FirstMatchWins(t *testing.T) {
	rec := NormalizeRecord(map[string]any{
		"part_number": "CANONICAL",
		"sku":         "LATER-ALIAS",
	})
	if rec.PartNumber != "CANONICAL" {
		t.Errorf("expected canonical name to win, got %q", rec.PartNumber)
	}
}

func TestNormalizeRecord_NonStringValues(t *testing.T) {
	rec := NormalizeRecord(map[string]any{
		"part_number": 1234,
		"name":        "Widget",
	})
	if rec.PartNumber != "1234" {
		t.Errorf("expected numeric value coerced, got %q", rec.PartNumber)
	}
}

func TestSourceRecord_Valid(t *testing.T) {
	if (&SourceRecord{}).Valid() {
		t.Error("empty record should be invalid")
	}
	if !(&SourceRecord{Name: "Widget"}).Valid() {
		t.Error("name-only record should be valid")
	}
	if !(&SourceRecord{PartNumber: "W-1"}).Valid() {
		t.Error("part-number-only record should be valid")
	}
}

func TestBucketForScore(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, QualityBucketHigh},
		{80, QualityBucketHigh},
		{79, QualityBucketMedium},
		{50, QualityBucketMedium},
		{49, QualityBucketLow},
		{0, QualityBucketLow},
	}
	for _, c := range cases {
		if got := BucketForScore(c.score); got != c.want {
			t.Errorf("BucketForScore(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}
