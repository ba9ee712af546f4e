package params

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

type seedEntry struct {
	Value       float64 `yaml:"value"`
	Description string  `yaml:"description"`
}

// seedFile is the YAML layout of PARAMETERS_FILE:
//
//	parameters:
//	  transcription_max_retries: {value: 3, description: "..."}
type seedFile struct {
	Parameters map[string]seedEntry `yaml:"parameters"`
}

// Defaults is the built-in parameter seed.
func Defaults() []*types.Parameter {
	out := []*types.Parameter{
		{Name: IntakeTimeoutMinutes, Value: 120, Description: "minutes a job may stay in uploading_media"},
		{Name: MaxMediaDurationSeconds, Value: 4 * 60 * 60, Description: "longest accepted media duration"},
		{Name: MaxTextLength, Value: 200000, Description: "longest accepted transcript or metadata text"},
	}
	timeouts := map[types.Stage]float64{
		types.StageTranscription: 60,
		types.StageAIEnrichment:  30,
		types.StageAIEvaluation:  30,
		types.StageTranslation:   30,
	}
	for _, st := range types.Stages() {
		d := types.MustDescribe(st)
		out = append(out,
			&types.Parameter{Name: d.ParamMaxRetries(), Value: 3, Description: fmt.Sprintf("claims allowed to time out for %s", st)},
			&types.Parameter{Name: d.ParamTimeoutMinutes(), Value: timeouts[st], Description: fmt.Sprintf("minutes a %s claim stays live", st)},
		)
	}
	return out
}

// LoadSeed merges the YAML file at path over the built-in defaults. An
// empty path yields the defaults.
func LoadSeed(path string) ([]*types.Parameter, error) {
	base := Defaults()
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters file: %w", err)
	}
	return mergeSeed(base, raw)
}

func mergeSeed(base []*types.Parameter, raw []byte) ([]*types.Parameter, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse parameters file: %w", err)
	}
	index := make(map[string]*types.Parameter, len(base))
	for _, p := range base {
		index[p.Name] = p
	}
	for name, entry := range f.Parameters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if entry.Value < 0 {
			return nil, fmt.Errorf("parameter %s: negative value %v", name, entry.Value)
		}
		if p, ok := index[name]; ok {
			p.Value = entry.Value
			if entry.Description != "" {
				p.Description = entry.Description
			}
			continue
		}
		p := &types.Parameter{Name: name, Value: entry.Value, Description: entry.Description}
		base = append(base, p)
		index[name] = p
	}
	return base, nil
}
