package rubric

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type fileLevel struct {
	Indicators     []string `yaml:"indicators"`
	Justifications []string `yaml:"justifications"`
}

type fileSet struct {
	Question string               `yaml:"question"`
	Tiers    map[string]fileLevel `yaml:"tiers"`
	// IdealPoints is the older layout: every tier is a bare list used both
	// as indicators and as justifications.
	IdealPoints map[string]fileLevel `yaml:"ideal_points"`
}

// LoadFile reads a YAML or JSON rubric file.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rubric file: %w", err)
	}
	defer f.Close()

	store, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load rubric file %s: %w", path, err)
	}
	return store, nil
}

// Load decodes a rubric document keyed by question id.
func Load(r io.Reader) (*Store, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return NewStore()
		}
		return nil, fmt.Errorf("decode rubric: %w", err)
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sets := make([]*Set, 0, len(ids))
	for _, id := range ids {
		var raw fileSet
		if err := decode(doc[id], &raw); err != nil {
			return nil, fmt.Errorf("question %s: %w", id, err)
		}

		set, err := raw.toSet(id)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	return NewStore(sets...)
}

func decode(input any, out *fileSet) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       listToLevelHook,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// listToLevelHook accepts a bare list wherever a tier is expected.
func listToLevelHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(fileLevel{}) || from.Kind() != reflect.Slice {
		return data, nil
	}

	items := reflect.ValueOf(data)
	list := make([]string, 0, items.Len())
	for i := 0; i < items.Len(); i++ {
		list = append(list, fmt.Sprint(items.Index(i).Interface()))
	}
	return map[string]any{
		"indicators":     list,
		"justifications": list,
	}, nil
}

func (f fileSet) toSet(id string) (*Set, error) {
	if len(f.Tiers) > 0 && len(f.IdealPoints) > 0 {
		return nil, fmt.Errorf("question %s: both tiers and ideal_points are set", id)
	}

	legacy := len(f.IdealPoints) > 0
	tiers := f.Tiers
	if legacy {
		tiers = f.IdealPoints
	}

	levels := make([]Level, 0, len(tiers))
	for key, raw := range tiers {
		tier, err := ParseTier(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", id, err)
		}

		indicators := cleanList(raw.Indicators)
		justifications := cleanList(raw.Justifications)
		if len(justifications) == 0 {
			if legacy {
				// An empty legacy list marks the tier as not applicable.
				continue
			}
			return nil, fmt.Errorf("question %s: tier %d has no justification", id, tier)
		}
		levels = append(levels, NewLevel(tier, indicators, justifications[0]))
	}

	return NewSet(id, strings.TrimSpace(f.Question), levels...)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
