package params

import (
	"fmt"
	"math"
	"sort"
	"time"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

const (
	IntakeTimeoutMinutes    = "intake_timeout_minutes"
	MaxMediaDurationSeconds = "max_media_duration_seconds"
	MaxTextLength           = "max_text_length"
)

// Snapshot is the parameter set read once at the start of an operation so
// every check inside that operation sees the same values.
type Snapshot struct {
	values map[string]float64
}

func NewSnapshot(values map[string]float64) Snapshot {
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Snapshot{values: cp}
}

func (s Snapshot) Lookup(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Float returns a mandatory parameter. A missing name is a deployment
// defect and surfaces as an internal error.
func (s Snapshot) Float(name string) (float64, error) {
	v, ok := s.values[name]
	if !ok || math.IsNaN(v) {
		return 0, types.NewError(types.CodeInternal, "params.lookup", fmt.Sprintf("missing mandatory parameter %q", name), nil)
	}
	return v, nil
}

func (s Snapshot) Int(name string) (int, error) {
	v, err := s.Float(name)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (s Snapshot) Minutes(name string) (time.Duration, error) {
	v, err := s.Float(name)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Minute)), nil
}

func (s Snapshot) MaxRetries(stage types.Stage) (int, error) {
	return s.Int(types.MustDescribe(stage).ParamMaxRetries())
}

func (s Snapshot) StageTimeout(stage types.Stage) (time.Duration, error) {
	return s.Minutes(types.MustDescribe(stage).ParamTimeoutMinutes())
}

// Validate reports every mandatory name the snapshot lacks.
func (s Snapshot) Validate() error {
	var missing []string
	for _, name := range MandatoryNames() {
		if _, ok := s.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &types.Error{
		Code:    types.CodeInternal,
		Op:      "params.validate",
		Message: "missing mandatory parameters",
		Causes:  missing,
	}
}

// MandatoryNames lists the parameters every pipeline operation may read.
func MandatoryNames() []string {
	names := []string{IntakeTimeoutMinutes, MaxMediaDurationSeconds, MaxTextLength}
	for _, st := range types.Stages() {
		d := types.MustDescribe(st)
		names = append(names, d.ParamMaxRetries(), d.ParamTimeoutMinutes())
	}
	return names
}
