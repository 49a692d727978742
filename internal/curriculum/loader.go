package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches the course catalog from the filesystem.
// Courses are static: they are never created or destroyed at runtime.
type Loader struct {
	rootDir string
	courses map[string]Course
	mu      sync.RWMutex
}

// NewLoader creates a new catalog loader and loads every course file under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		courses: make(map[string]Course),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "courses", len(l.courses))
	return l, nil
}

// NewStaticLoader builds a catalog from in-memory courses. Ordinals are assigned
// the same way as for files.
func NewStaticLoader(courses ...Course) (*Loader, error) {
	l := &Loader{courses: make(map[string]Course)}
	for _, c := range courses {
		if err := l.add(normalize(c)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Course returns a course by ID.
func (l *Loader) Course(id string) (Course, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.courses[id]
	return c, ok
}

// Section returns a section of a course.
func (l *Loader) Section(courseID, sectionID string) (Section, bool) {
	c, ok := l.Course(courseID)
	if !ok {
		return Section{}, false
	}
	return c.Section(sectionID)
}

// Courses returns all loaded courses sorted by ID.
func (l *Loader) Courses() []Course {
	l.mu.RLock()
	defer l.mu.RUnlock()
	courses := make([]Course, 0, len(l.courses))
	for _, c := range l.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

func (l *Loader) loadAll() error {
	info, err := os.Stat(l.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.rootDir)
	}
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadCourse(path)
		}
		return nil
	})
}

func (l *Loader) loadCourse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if err := ValidateDocument(doc); err != nil {
		slog.Warn("skipping course YAML that fails schema", "path", path, "error", err)
		return nil
	}

	var course Course
	if err := yaml.Unmarshal(data, &course); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}

	if err := l.add(normalize(course)); err != nil {
		slog.Warn("skipping course", "path", path, "error", err)
	}
	return nil
}

func (l *Loader) add(c Course) error {
	if c.ID == "" {
		return fmt.Errorf("course id is required")
	}
	for _, s := range c.Sections {
		seen := make(map[string]bool, len(s.Topics))
		for _, t := range s.Topics {
			key := t.TopicKey()
			if seen[key] {
				return fmt.Errorf("course %s section %s: duplicate topic key %q", c.ID, s.ID, key)
			}
			seen[key] = true
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.courses[c.ID]; exists {
		return fmt.Errorf("duplicate course id %q", c.ID)
	}
	l.courses[c.ID] = c
	return nil
}

// normalize assigns contiguous 1-based ordinals in authoring order.
func normalize(c Course) Course {
	sections := make([]Section, len(c.Sections))
	for i, s := range c.Sections {
		topics := make([]Topic, len(s.Topics))
		for j, t := range s.Topics {
			t.Ordinal = j + 1
			topics[j] = t
		}
		s.Topics = topics
		sections[i] = s
	}
	c.Sections = sections
	return c
}
