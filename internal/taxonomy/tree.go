package taxonomy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/p-n-ai/cbt-admin/internal/naming"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// Tree is an in-memory taxonomy safe for concurrent use.
type Tree struct {
	levels   map[string]*Level
	subjects map[string]*Subject
	topics   map[string]*Topic
	mu       sync.RWMutex
}

// NewTree creates an empty taxonomy.
func NewTree() *Tree {
	return &Tree{
		levels:   make(map[string]*Level),
		subjects: make(map[string]*Subject),
		topics:   make(map[string]*Topic),
	}
}

// AddLevel adds a level. Level names are unique.
func (t *Tree) AddLevel(name string) (Level, error) {
	name = naming.Display(name)
	if name == "" {
		return Level{}, apperr.Invalid("name", "is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, l := range t.levels {
		if naming.Equal(l.Name, name) {
			return Level{}, fmt.Errorf("level %q: %w", name, ErrDuplicateNode)
		}
	}
	l := &Level{ID: uuid.NewString(), Name: name}
	t.levels[l.ID] = l
	return *l, nil
}

// AddSubject adds a subject under a level. Names are unique per level.
func (t *Tree) AddSubject(levelID, name string) (Subject, error) {
	name = naming.Display(name)
	if name == "" {
		return Subject{}, apperr.Invalid("name", "is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.levels[levelID]; !ok {
		return Subject{}, fmt.Errorf("level %s: %w", levelID, ErrNodeNotFound)
	}
	for _, s := range t.subjects {
		if s.LevelID == levelID && naming.Equal(s.Name, name) {
			return Subject{}, fmt.Errorf("subject %q: %w", name, ErrDuplicateNode)
		}
	}
	s := &Subject{ID: uuid.NewString(), LevelID: levelID, Name: name}
	t.subjects[s.ID] = s
	return *s, nil
}

// AddTopic adds a topic under a subject. Names are unique per subject.
func (t *Tree) AddTopic(subjectID, name string) (Topic, error) {
	name = naming.Display(name)
	if name == "" {
		return Topic{}, apperr.Invalid("name", "is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subjects[subjectID]; !ok {
		return Topic{}, fmt.Errorf("subject %s: %w", subjectID, ErrNodeNotFound)
	}
	for _, tp := range t.topics {
		if tp.SubjectID == subjectID && naming.Equal(tp.Name, name) {
			return Topic{}, fmt.Errorf("topic %q: %w", name, ErrDuplicateNode)
		}
	}
	tp := &Topic{ID: uuid.NewString(), SubjectID: subjectID, Name: name}
	t.topics[tp.ID] = tp
	return *tp, nil
}

// RemoveLevel deletes a level with its subjects and topics.
func (t *Tree) RemoveLevel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.levels[id]; !ok {
		return fmt.Errorf("level %s: %w", id, ErrNodeNotFound)
	}
	for sid, s := range t.subjects {
		if s.LevelID == id {
			t.removeSubjectLocked(sid)
		}
	}
	delete(t.levels, id)
	return nil
}

// RemoveSubject deletes a subject with its topics.
func (t *Tree) RemoveSubject(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subjects[id]; !ok {
		return fmt.Errorf("subject %s: %w", id, ErrNodeNotFound)
	}
	t.removeSubjectLocked(id)
	return nil
}

// RemoveTopic deletes a topic.
func (t *Tree) RemoveTopic(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.topics[id]; !ok {
		return fmt.Errorf("topic %s: %w", id, ErrNodeNotFound)
	}
	delete(t.topics, id)
	return nil
}

func (t *Tree) removeSubjectLocked(id string) {
	for tid, tp := range t.topics {
		if tp.SubjectID == id {
			delete(t.topics, tid)
		}
	}
	delete(t.subjects, id)
}

// Levels returns all levels sorted by name, without children.
func (t *Tree) Levels() []Level {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Level, 0, len(t.levels))
	for _, l := range t.levels {
		out = append(out, Level{ID: l.ID, Name: l.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Subjects returns the subjects of a level sorted by name.
func (t *Tree) Subjects(levelID string) ([]Subject, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.levels[levelID]; !ok {
		return nil, fmt.Errorf("level %s: %w", levelID, ErrNodeNotFound)
	}
	out := []Subject{}
	for _, s := range t.subjects {
		if s.LevelID == levelID {
			out = append(out, Subject{ID: s.ID, LevelID: s.LevelID, Name: s.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Topics returns the topics of a subject sorted by name.
func (t *Tree) Topics(subjectID string) ([]Topic, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.subjects[subjectID]; !ok {
		return nil, fmt.Errorf("subject %s: %w", subjectID, ErrNodeNotFound)
	}
	out := []Topic{}
	for _, tp := range t.topics {
		if tp.SubjectID == subjectID {
			out = append(out, *tp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Snapshot returns the whole tree with children, sorted by name.
func (t *Tree) Snapshot() []Level {
	levels := t.Levels()
	for i := range levels {
		subjects, _ := t.Subjects(levels[i].ID)
		for j := range subjects {
			subjects[j].Topics, _ = t.Topics(subjects[j].ID)
		}
		levels[i].Subjects = subjects
	}
	return levels
}

// Resolve turns a selection of ids into names. Empty ids resolve to empty
// names so that required-field validation can report them; every non-empty
// id must exist and sit under the selected parent.
func (t *Tree) Resolve(sel Selection) (Names, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var names Names
	if sel.LevelID != "" {
		l, ok := t.levels[sel.LevelID]
		if !ok {
			return Names{}, &ResolutionError{Field: "level", ID: sel.LevelID, Reason: "no longer exists"}
		}
		names.Level = l.Name
	}
	if sel.SubjectID != "" {
		s, ok := t.subjects[sel.SubjectID]
		if !ok {
			return Names{}, &ResolutionError{Field: "subject", ID: sel.SubjectID, Reason: "no longer exists"}
		}
		if sel.LevelID != "" && s.LevelID != sel.LevelID {
			return Names{}, &ResolutionError{Field: "subject", ID: sel.SubjectID, Reason: "does not belong to the selected level"}
		}
		names.Subject = s.Name
	}
	if sel.TopicID != "" {
		tp, ok := t.topics[sel.TopicID]
		if !ok {
			return Names{}, &ResolutionError{Field: "topic", ID: sel.TopicID, Reason: "no longer exists"}
		}
		if sel.SubjectID != "" && tp.SubjectID != sel.SubjectID {
			return Names{}, &ResolutionError{Field: "topic", ID: sel.TopicID, Reason: "does not belong to the selected subject"}
		}
		names.Topic = tp.Name
	}
	return names, nil
}
