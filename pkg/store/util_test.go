package store

import (
	"reflect"
	"testing"

	"github.com/graphrag-chat/backend/pkg/common"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Person", "Person"},
		{"Person Age", "Person_Age"},
		{"WORKS-AT", "WORKS_AT"},
		{"1st", "_1st"},
		{"人物", "人物"},
		{"工作 于", "工作_于"},
		{"２号", "_２号"},
		{"-*-", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := SanitizeLabel(tt.in); got != tt.want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"张三", "", "北京大学", "张三"})
	want := []string{"张三", "北京大学"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DedupeStrings = %q, want %q", got, want)
	}
	if DedupeStrings(nil) != nil {
		t.Fatalf("DedupeStrings(nil) should be nil")
	}
}

func TestDedupe(t *testing.T) {
	a := common.Triple{Source: "A", Relation: "R", Target: "B"}
	b := common.Triple{Source: "B", Relation: "R", Target: "C"}
	got := Dedupe([]common.Triple{a, b, a})
	if !reflect.DeepEqual(got, []common.Triple{a, b}) {
		t.Fatalf("Dedupe = %+v", got)
	}
}
