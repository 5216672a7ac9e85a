package taxonomy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/cbt-admin/internal/naming"
)

const seedSchema = `{
  "type": "object",
  "required": ["levels"],
  "properties": {
    "levels": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "subjects": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "topics": {"type": "array", "items": {"type": "string", "minLength": 1}}
              }
            }
          }
        }
      }
    }
  }
}`

var schema = mustSchema(seedSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("taxonomy seed schema: %v", err))
	}
	return sc
}

type seedFile struct {
	Levels []struct {
		Name     string `yaml:"name"`
		Subjects []struct {
			Name   string   `yaml:"name"`
			Topics []string `yaml:"topics"`
		} `yaml:"subjects"`
	} `yaml:"levels"`
}

// Load builds a tree from every .yaml/.yml seed file under rootDir. Files
// that fail to parse or validate are skipped with a warning; levels and
// subjects repeated across files are merged by name.
func Load(rootDir string) (*Tree, error) {
	t := NewTree()
	files := 0
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !(strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			return nil
		}
		ok, err := t.loadFile(path)
		if ok {
			files++
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}

	slog.Info("taxonomy loaded", "files", files, "levels", len(t.levels), "subjects", len(t.subjects), "topics", len(t.topics))
	return t, nil
}

func (t *Tree) loadFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	seed, err := decodeSeed(data)
	if err != nil {
		slog.Warn("skipping invalid taxonomy seed", "path", path, "error", err)
		return false, nil
	}
	return true, t.apply(seed)
}

// decodeSeed parses YAML and checks it against the seed schema.
func decodeSeed(data []byte) (seedFile, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return seedFile{}, err
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return seedFile{}, err
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return seedFile{}, errors.New(strings.Join(msgs, "; "))
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seedFile{}, err
	}
	return seed, nil
}

func (t *Tree) apply(seed seedFile) error {
	for _, ls := range seed.Levels {
		level, err := t.levelNamed(ls.Name)
		if err != nil {
			return err
		}
		for _, ss := range ls.Subjects {
			subject, err := t.subjectNamed(level, ss.Name)
			if err != nil {
				return err
			}
			for _, name := range ss.Topics {
				if _, err := t.AddTopic(subject, name); err != nil && !errors.Is(err, ErrDuplicateNode) {
					return err
				}
			}
		}
	}
	return nil
}

func (t *Tree) levelNamed(name string) (string, error) {
	for _, l := range t.Levels() {
		if naming.Equal(l.Name, name) {
			return l.ID, nil
		}
	}
	l, err := t.AddLevel(name)
	return l.ID, err
}

func (t *Tree) subjectNamed(levelID, name string) (string, error) {
	subjects, err := t.Subjects(levelID)
	if err != nil {
		return "", err
	}
	for _, s := range subjects {
		if naming.Equal(s.Name, name) {
			return s.ID, nil
		}
	}
	s, err := t.AddSubject(levelID, name)
	return s.ID, err
}
