package progress_test

import (
	"reflect"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

func TestLocalCacheKey(t *testing.T) {
	if got := progress.LocalCacheKey("python", "basics"); got != "python_basics_completed" {
		t.Errorf("LocalCacheKey() = %q, want python_basics_completed", got)
	}
}

func TestDecodeOrdinals(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{"empty", "", nil},
		{"not json", "not json", nil},
		{"object", `{"a":1}`, nil},
		{"plain", `[1,3]`, []int{1, 3}},
		{"drops junk", `[0,-2,1.5,"4",true,2]`, []int{2}},
		{"integral float", `[2.0]`, []int{2}},
		{"overflowing number", `[1,3,1e400]`, []int{1, 3}},
		{"huge integer", `[1,3,99999999999]`, []int{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.DecodeOrdinals([]byte(tt.raw))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeOrdinals(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeOrdinals(t *testing.T) {
	got := string(progress.EncodeOrdinals([]int{3, 1, 3, 0, 2}))
	if got != "[1,2,3]" {
		t.Errorf("EncodeOrdinals() = %s, want [1,2,3]", got)
	}
	if got := string(progress.EncodeOrdinals(nil)); got != "[]" {
		t.Errorf("EncodeOrdinals(nil) = %s, want []", got)
	}
}

func TestOrdinalsToKeys(t *testing.T) {
	abc := topics("a", "b", "c")

	got := progress.OrdinalsToKeys([]int{1, 3, 0, 4}, abc)
	want := []string{"a", "c"}
	if !reflect.DeepEqual(got.Keys(), want) {
		t.Errorf("OrdinalsToKeys() = %v, want %v", got.Keys(), want)
	}
}

func TestKeysToOrdinals(t *testing.T) {
	abc := topics("a", "b", "c")

	got := progress.KeysToOrdinals(progress.NewKeySet("c", "a", "missing"), abc)
	want := []int{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KeysToOrdinals() = %v, want %v", got, want)
	}

	back := progress.OrdinalsToKeys(got, abc)
	if !reflect.DeepEqual(back.Keys(), []string{"a", "c"}) {
		t.Errorf("round trip = %v, want [a c]", back.Keys())
	}
}
