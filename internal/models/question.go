package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

// IsAutoGradable reports whether the type is scorable without human
// judgment. Essays are graded manually and excluded from the automatic
// point tally.
func (t QuestionType) IsAutoGradable() bool {
	return t == MultipleChoice || t == ShortAnswer
}

type Question struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	ExamID uint `json:"exam_id" gorm:"not null;index:idx_exam_order,unique,priority:1"`

	// OrderIndex is unique within an exam and defines presentation order.
	OrderIndex int `json:"order_index" gorm:"not null;index:idx_exam_order,unique,priority:2"`

	Text   string       `json:"text" gorm:"type:text;not null" validate:"required,min=1,max=2000"`
	Type   QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`
	Points float64      `json:"points" gorm:"not null" validate:"required,gt=0"`

	// Options is the multiple-choice key→text mapping, stored as JSONB with
	// authoring order preserved. Empty for other types.
	Options OptionMap `json:"options,omitempty" gorm:"type:jsonb"`

	// CorrectAnswer is an option key for multiple_choice, the expected
	// literal string for short_answer, and empty for essay.
	CorrectAnswer string `json:"correct_answer,omitempty" gorm:"size:2000"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "exam_questions"
}

// HasOption reports whether key is one of the question's option keys.
func (q *Question) HasOption(key string) bool {
	_, ok := q.Options.Get(key)
	return ok
}

// Sanitized returns a copy safe to hand to a student taking the exam: the
// answer key is stripped, options are kept.
func (q *Question) Sanitized() *Question {
	clean := *q
	clean.CorrectAnswer = ""
	return &clean
}

// OptionMap is an ordered key→text mapping for multiple-choice options.
// It serializes as a plain JSON object but, unlike a Go map, keeps the
// authoring order of keys stable across round trips — the order questions
// were written in is the order students see.
type OptionMap struct {
	keys   []string
	values map[string]string
}

// NewOptionMap builds an OptionMap from alternating key, text pairs.
func NewOptionMap(pairs ...string) OptionMap {
	var m OptionMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set adds or replaces an option. A replaced key keeps its original
// position.
func (m *OptionMap) Set(key, text string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = text
}

// Get returns the option text for key.
func (m OptionMap) Get(key string) (string, bool) {
	text, ok := m.values[key]
	return text, ok
}

// Keys returns the option keys in insertion order.
func (m OptionMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m OptionMap) Len() int {
	return len(m.keys)
}

func (m OptionMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OptionMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.values = make(map[string]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("options: non-string key %v", keyTok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("options: value for %q: %w", key, err)
		}
		m.Set(key, text)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Value implements driver.Valuer so gorm stores the mapping as JSONB.
func (m OptionMap) Value() (driver.Value, error) {
	if len(m.keys) == 0 {
		return nil, nil
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *OptionMap) Scan(src interface{}) error {
	if src == nil {
		m.keys = nil
		m.values = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("options: cannot scan %T", src)
	}
}

func (OptionMap) GormDataType() string {
	return "jsonb"
}
