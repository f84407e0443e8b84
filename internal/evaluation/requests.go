package evaluation

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-scorer/internal/confidence"
)

type answerEntry struct {
	QuestionID string   `yaml:"question_id"`
	Transcript string   `yaml:"transcript"`
	Acoustic   *float64 `yaml:"acoustic"`
}

type answersFile struct {
	Answers []answerEntry `yaml:"answers"`
}

// LoadRequests reads a YAML or JSON answers file. The document is either a
// list of answers or a mapping with an "answers" list.
func LoadRequests(path string) ([]Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open answers file: %w", err)
	}
	defer f.Close()

	reqs, err := ReadRequests(f)
	if err != nil {
		return nil, fmt.Errorf("load answers file %s: %w", path, err)
	}
	return reqs, nil
}

func ReadRequests(r io.Reader) ([]Request, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode answers: %w", err)
	}

	var file answersFile
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"answers": list}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &file,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}

	reqs := make([]Request, 0, len(file.Answers))
	for i, a := range file.Answers {
		id := strings.TrimSpace(a.QuestionID)
		if id == "" {
			return nil, fmt.Errorf("answer %d: question_id is required", i+1)
		}

		acoustic := confidence.NoAcoustic()
		if a.Acoustic != nil {
			acoustic = confidence.NewAcoustic(*a.Acoustic)
		}
		reqs = append(reqs, Request{
			QuestionID: id,
			Transcript: a.Transcript,
			Acoustic:   acoustic,
		})
	}
	return reqs, nil
}
