package curriculum

import "strconv"

// Course is a named collection of sections loaded from YAML.
type Course struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Sections []Section `yaml:"sections"`
}

// Section is an ordered list of topics. Topic order is fixed at authoring time.
type Section struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Topics []Topic `yaml:"topics"`
}

// Topic is the smallest unit of content with a completion flag.
type Topic struct {
	Key     string          `yaml:"key"`
	Ordinal int             `yaml:"-"` // 1-based, assigned by the loader
	Title   string          `yaml:"title"`
	Body    string          `yaml:"body"`
	Quiz    *Quiz           `yaml:"quiz,omitempty"`
	Coding  *CodingExercise `yaml:"coding,omitempty"`
}

// Quiz holds the pass mark for a topic's quiz.
type Quiz struct {
	PassScore float64 `yaml:"pass_score"`
}

// CodingExercise describes how a coding submission for a topic is checked.
type CodingExercise struct {
	LanguageID     int    `yaml:"language_id"`
	Stdin          string `yaml:"stdin"`
	ExpectedOutput string `yaml:"expected_output"`
}

// TopicKey returns the stable key used by the remote store.
// Topics without a slug fall back to their ordinal.
func (t Topic) TopicKey() string {
	if t.Key != "" {
		return t.Key
	}
	return strconv.Itoa(t.Ordinal)
}

// Topic returns the topic with the given key.
func (s Section) Topic(key string) (Topic, bool) {
	for _, t := range s.Topics {
		if t.TopicKey() == key {
			return t, true
		}
	}
	return Topic{}, false
}

// Section returns the section with the given ID.
func (c Course) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// TopicCount returns the number of topics across all sections.
func (c Course) TopicCount() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Topics)
	}
	return n
}
