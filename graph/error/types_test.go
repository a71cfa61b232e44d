package grapherror

import (
	"errors"
	"testing"
	"time"

	yerrors "github.com/aryanzandi123/yesah/errors"
)

func TestGraphError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *GraphError
		want string
	}{
		{
			name: "returns underlying error message when Err is not nil",
			err: &GraphError{
				Err:         errors.New("record 3 has no target"),
				UserMessage: "skipped",
			},
			want: "record 3 has no target",
		},
		{
			name: "returns UserMessage when Err is nil",
			err:  &GraphError{UserMessage: "merged"},
			want: "merged",
		},
		{
			name: "returns empty string when both are empty",
			err:  &GraphError{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("GraphError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	underlying := errors.New("mediator MDM2 absent")
	err := New(CategoryMediator, underlying, "")

	if err.Err != underlying {
		t.Errorf("New().Err = %v, want %v", err.Err, underlying)
	}
	if err.Category != CategoryMediator {
		t.Errorf("New().Category = %v", err.Category)
	}
	if err.Context == nil || len(err.Context) != 0 {
		t.Error("New().Context should be an empty map")
	}
	if time.Since(err.Timestamp) > time.Second {
		t.Error("New().Timestamp should be recent")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryRecord, "", "record %d missing %s", 4, "source")
	if err.Err == nil || err.Err.Error() != "record 4 missing source" {
		t.Errorf("Newf().Err = %v", err.Err)
	}
}

func TestUnwrapAndAs(t *testing.T) {
	ge := New(CategoryExpansion, yerrors.ErrDepthLimit, "").
		WithSubcategory(SubcategoryExpansionDepthLimit)
	wrapped := yerrors.Wrap(ge, "expand CDK2")

	if !yerrors.Is(wrapped, yerrors.ErrDepthLimit) {
		t.Error("wrapped GraphError should match its underlying sentinel")
	}

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("As() should find the GraphError")
	}
	if !got.IsCategory(CategoryExpansion) || !got.IsSubcategory(SubcategoryExpansionDepthLimit) {
		t.Errorf("unexpected category/subcategory %s/%s", got.Category, got.Subcategory)
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("As() should fail for plain errors")
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryOrphan, nil, "").
		WithContext("node_id", "BRCA1").
		WithContextMap(map[string]interface{}{"root": "TP53", "confidence": 0.1})

	if len(err.Context) != 3 {
		t.Fatalf("expected 3 context entries, got %d", len(err.Context))
	}
	if err.Context["root"] != "TP53" {
		t.Errorf("root = %v", err.Context["root"])
	}
}

func TestToUIMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *GraphError
		want string
	}{
		{"custom message wins", &GraphError{Category: CategoryRecord, UserMessage: "custom"}, "custom"},
		{"duplicate default", &GraphError{Category: CategoryDuplicate}, "A repeated interaction was merged"},
		{"stale default", &GraphError{Category: CategoryStale}, "An outdated expansion result was ignored"},
		{"unknown category", &GraphError{Category: Category("nope")}, "An error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.ToUIMessage(); got != tt.want {
				t.Errorf("ToUIMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToGraphMeta(t *testing.T) {
	err := New(CategoryProvider, errors.New("503"), "").
		WithSubcategory(SubcategoryProviderHTTP).
		WithContext("status", 503)

	meta := err.ToGraphMeta()
	if meta["category"] != "provider" {
		t.Errorf("category = %q", meta["category"])
	}
	if meta["subcategory"] != SubcategoryProviderHTTP {
		t.Errorf("subcategory = %q", meta["subcategory"])
	}
	if meta["error"] != "503" {
		t.Errorf("error = %q", meta["error"])
	}
	if _, ok := meta["context"]; !ok {
		t.Error("context should be present")
	}
}

func TestToLogFields(t *testing.T) {
	err := New(CategoryMediator, errors.New("missing"), "").
		WithSubcategory(SubcategoryRepairFallbackLink).
		WithContext("target", "BAX").
		WithContext("mediator", "MDM2")

	fields := err.ToLogFields()
	// 3 base pairs + subcategory + 2 context pairs
	if len(fields) != 12 {
		t.Fatalf("expected 12 field entries, got %d", len(fields))
	}
	if fields[8] != "mediator" || fields[10] != "target" {
		t.Errorf("context keys should be sorted, got %v and %v", fields[8], fields[10])
	}
}
