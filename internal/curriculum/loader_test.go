package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

func TestLoader_LoadCourses(t *testing.T) {
	dir := setupTestCatalog(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	courses := loader.Courses()
	if len(courses) != 1 {
		t.Fatalf("Courses() = %d courses, want 1", len(courses))
	}
	if courses[0].ID != "python" {
		t.Errorf("course ID = %q, want python", courses[0].ID)
	}
}

func TestLoader_AssignsOrdinals(t *testing.T) {
	dir := setupTestCatalog(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	section, found := loader.Section("python", "basics")
	if !found {
		t.Fatal("Section(python, basics) not found")
	}
	if len(section.Topics) != 3 {
		t.Fatalf("len(Topics) = %d, want 3", len(section.Topics))
	}
	for i, topic := range section.Topics {
		if topic.Ordinal != i+1 {
			t.Errorf("Topics[%d].Ordinal = %d, want %d", i, topic.Ordinal, i+1)
		}
	}
	// Third topic has no slug and falls back to its ordinal.
	if got := section.Topics[2].TopicKey(); got != "3" {
		t.Errorf("TopicKey() = %q, want 3", got)
	}
}

func TestLoader_ParsesExercises(t *testing.T) {
	dir := setupTestCatalog(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	section, _ := loader.Section("python", "basics")
	topic, found := section.Topic("variables")
	if !found {
		t.Fatal("Topic(variables) not found")
	}
	if topic.Quiz == nil || topic.Quiz.PassScore != 80 {
		t.Errorf("Quiz = %+v, want pass score 80", topic.Quiz)
	}

	coding, _ := section.Topic("3")
	if coding.Coding == nil {
		t.Fatal("Coding exercise is nil")
	}
	if coding.Coding.LanguageID != 71 || coding.Coding.ExpectedOutput != "42" {
		t.Errorf("Coding = %+v, want language 71 with expected output 42", coding.Coding)
	}
}

func TestLoader_UnknownCourse(t *testing.T) {
	dir := setupTestCatalog(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, found := loader.Course("NONEXISTENT"); found {
		t.Error("Course(NONEXISTENT) should not be found")
	}
	if _, found := loader.Section("python", "NONEXISTENT"); found {
		t.Error("Section(python, NONEXISTENT) should not be found")
	}
}

func TestLoader_SkipsInvalidFiles(t *testing.T) {
	dir := setupTestCatalog(t)

	files := map[string]string{
		"broken.yaml":     "id: [unterminated",
		"no-sections.yml": "id: javascript\nname: JS\n",
		"dup-keys.yaml": `
id: go
sections:
  - id: intro
    topics:
      - key: hello
      - key: hello
`,
		"dup-course.yaml": `
id: python
sections:
  - id: other
    topics:
      - key: x
`,
	}
	for name, body := range files {
		os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)
	}

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	courses := loader.Courses()
	if len(courses) != 1 {
		t.Fatalf("Courses() = %d, want 1 (invalid files should be skipped)", len(courses))
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := curriculum.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if n := len(loader.Courses()); n != 0 {
		t.Errorf("Courses() = %d, want 0 for empty dir", n)
	}
}

func TestLoader_MissingDir(t *testing.T) {
	if _, err := curriculum.NewLoader(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("NewLoader() should fail for a missing directory")
	}
}

func TestNewStaticLoader(t *testing.T) {
	loader, err := curriculum.NewStaticLoader(curriculum.Course{
		ID: "go",
		Sections: []curriculum.Section{
			{ID: "intro", Topics: []curriculum.Topic{{Key: "a"}, {Key: "b"}}},
		},
	})
	if err != nil {
		t.Fatalf("NewStaticLoader() error = %v", err)
	}

	section, found := loader.Section("go", "intro")
	if !found {
		t.Fatal("Section(go, intro) not found")
	}
	if section.Topics[1].Ordinal != 2 {
		t.Errorf("Ordinal = %d, want 2", section.Topics[1].Ordinal)
	}
}

func TestNewStaticLoader_DuplicateKeys(t *testing.T) {
	_, err := curriculum.NewStaticLoader(curriculum.Course{
		ID: "go",
		Sections: []curriculum.Section{
			// Explicit key "2" collides with the ordinal fallback of the second topic.
			{ID: "intro", Topics: []curriculum.Topic{{Key: "2"}, {}}},
		},
	})
	if err == nil {
		t.Fatal("NewStaticLoader() should reject duplicate topic keys")
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     any
		wantErr bool
	}{
		{"valid", map[string]any{"id": "go", "sections": []any{}}, false},
		{"missing-id", map[string]any{"sections": []any{}}, true},
		{"bad-language", map[string]any{
			"id": "go",
			"sections": []any{map[string]any{
				"id":     "s",
				"topics": []any{map[string]any{"coding": map[string]any{"language_id": "python"}}},
			}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := curriculum.ValidateDocument(tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func setupTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	coursesDir := filepath.Join(dir, "courses")
	os.MkdirAll(coursesDir, 0o755)

	os.WriteFile(filepath.Join(coursesDir, "python.yaml"), []byte(`
id: python
name: "Python for Beginners"
sections:
  - id: basics
    name: "Basics"
    topics:
      - key: hello
        title: "Hello, World"
      - key: variables
        title: "Variables"
        quiz:
          pass_score: 80
      - title: "Your first program"
        coding:
          language_id: 71
          expected_output: "42"
`), 0o644)

	// Non-course files are ignored.
	os.WriteFile(filepath.Join(coursesDir, "README.md"), []byte("# Courses"), 0o644)

	return dir
}
