package attempt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"sync"
)

// AnswerStore holds the selected option per question id. Entries are only
// ever overwritten, never removed.
type AnswerStore struct {
	mu      sync.RWMutex
	answers map[int]int
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: map[int]int{}}
}

// Set records option (1..4) for the question, replacing any prior choice.
func (s *AnswerStore) Set(questionID, option int) error {
	if option < 1 || option > 4 {
		return ErrInvalidOption
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = option
	return nil
}

func (s *AnswerStore) Get(questionID int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.answers[questionID]
	return v, ok
}

// IsComplete reports whether every question has an answer. It only gates
// the submit affordance; submission accepts partial answers.
func (s *AnswerStore) IsComplete(questions []Question) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range questions {
		if _, ok := s.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Answered counts the questions that have an answer.
func (s *AnswerStore) Answered(questions []Question) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, q := range questions {
		if _, ok := s.answers[q.ID]; ok {
			n++
		}
	}
	return n
}

// Payload builds the submission body: one entry per question, in question
// order, nil for unanswered questions.
func (s *AnswerStore) Payload(questions []Question) Payload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Payload, 0, len(questions))
	for _, q := range questions {
		e := PayloadEntry{QuestionID: q.ID}
		if v, ok := s.answers[q.ID]; ok {
			opt := v
			e.Option = &opt
		}
		out = append(out, e)
	}
	return out
}

type PayloadEntry struct {
	QuestionID int
	Option     *int
}

func (e PayloadEntry) Key() string { return PayloadKey(e.QuestionID) }

// PayloadKey is the wire key for a question's answer.
func PayloadKey(questionID int) string { return "question_" + strconv.Itoa(questionID) }

// Payload encodes as a JSON object whose keys keep question order.
type Payload []PayloadEntry

func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key())
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if e.Option == nil {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.Itoa(*e.Option))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the wire object. Options may be numbers or numeric
// strings. Map decoding loses key order, so callers match by QuestionID.
func (p *Payload) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Payload, 0, len(raw))
	for k, v := range raw {
		id, ok := parsePayloadKey(k)
		if !ok {
			continue
		}
		e := PayloadEntry{QuestionID: id}
		if s := string(bytes.Trim(v, `"`)); s != "null" && s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			e.Option = &n
		}
		out = append(out, e)
	}
	*p = out
	return nil
}

// Lookup returns the option submitted for the question.
func (p Payload) Lookup(questionID int) (int, bool) {
	for _, e := range p {
		if e.QuestionID == questionID && e.Option != nil {
			return *e.Option, true
		}
	}
	return 0, false
}

func parsePayloadKey(k string) (int, bool) {
	const prefix = "question_"
	if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
		return 0, false
	}
	id, err := strconv.Atoi(k[len(prefix):])
	if err != nil {
		return 0, false
	}
	return id, true
}
