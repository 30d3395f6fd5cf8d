package core

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestBuildPreview_MissingTitleScenario(t *testing.T) {
	got := BuildPreview("Title,Shelf\nHobbit,Fiction\n,Sci-Fi\n", nil, 0)

	if len(got.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(got.Rows))
	}
	if got.Rows[0].Error != "" {
		t.Errorf("Rows[0].Error = %q, want none", got.Rows[0].Error)
	}
	if got.Rows[1].Error != "Row 3: Missing title" {
		t.Errorf("Rows[1].Error = %q, want %q", got.Rows[1].Error, "Row 3: Missing title")
	}
	if !reflect.DeepEqual(got.Errors, []string{"Row 3: Missing title"}) {
		t.Errorf("Errors = %q", got.Errors)
	}
	if got.Rows[1].Mapped[FieldShelf] != "Sci-Fi" {
		t.Errorf("failing row should still be projected, got %v", got.Rows[1].Mapped)
	}
	if got.Mapping["Title"] != FieldTitle || got.Mapping["Shelf"] != FieldShelf {
		t.Errorf("inferred Mapping = %v", got.Mapping)
	}
}

func TestBuildPreview_Limit(t *testing.T) {
	var b strings.Builder
	b.WriteString("Title\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "Book %d\n", i)
	}
	text := b.String()

	if got := BuildPreview(text, nil, 0); len(got.Rows) != DefaultPreviewLimit || got.Total != 120 {
		t.Errorf("default limit: rows=%d total=%d", len(got.Rows), got.Total)
	}
	if got := BuildPreview(text, nil, 5); len(got.Rows) != 5 {
		t.Errorf("limit 5: rows=%d", len(got.Rows))
	}
	if got := BuildPreview(text, nil, 500); len(got.Rows) != 120 {
		t.Errorf("limit above total: rows=%d", len(got.Rows))
	}
}

func TestBuildPreview_ExplicitMapping(t *testing.T) {
	text := "Name,By,Where\n  The   Hobbit ,Tolkien,Fiction\n"
	mapping := HeaderMapping{"Name": FieldTitle, "By": FieldAuthor, "Where": FieldIgnored}

	got := BuildPreview(text, mapping, 10)

	want := map[Field]string{FieldTitle: "The Hobbit", FieldAuthor: "Tolkien"}
	if !reflect.DeepEqual(got.Rows[0].Mapped, want) {
		t.Errorf("Mapped = %v, want %v", got.Rows[0].Mapped, want)
	}
	if got.Rows[0].Raw["Where"] != "Fiction" {
		t.Errorf("Raw should keep unmapped columns: %v", got.Rows[0].Raw)
	}
	if len(got.Errors) != 0 {
		t.Errorf("Errors = %q", got.Errors)
	}
}

func TestBuildPreview_LaterHeaderWins(t *testing.T) {
	text := "Title,Alt Title\nFirst,Second\n"
	mapping := HeaderMapping{"Title": FieldTitle, "Alt Title": FieldTitle}

	got := BuildPreview(text, mapping, 10)
	if got.Rows[0].Mapped[FieldTitle] != "Second" {
		t.Errorf("title = %q, want the later header's value", got.Rows[0].Mapped[FieldTitle])
	}
}

func TestBuildPreview_DoesNotMutateMapping(t *testing.T) {
	mapping := HeaderMapping{"Title": FieldTitle}
	before := mapping.Clone()

	BuildPreview("Title,Author\nDune,Herbert\n", mapping, 10)

	if !reflect.DeepEqual(mapping, before) {
		t.Errorf("mapping mutated: %v", mapping)
	}
}

func TestBuildPreview_Empty(t *testing.T) {
	got := BuildPreview("", nil, 10)
	if len(got.Headers) != 0 || len(got.Rows) != 0 || len(got.Errors) != 0 {
		t.Errorf("BuildPreview(\"\") = %+v", got)
	}
}
