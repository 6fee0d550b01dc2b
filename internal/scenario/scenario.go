// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scenario implements a small YAML program format that drives
// signals, handlers, restarts and cleanup guards end to end.
package scenario

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Step kinds. A step is a single-key mapping whose key is its kind.
const (
	KindLog           = "log"
	KindReturn        = "return"
	KindSignal        = "signal"
	KindError         = "error"
	KindWarning       = "warning"
	KindMessage       = "message"
	KindInterrupt     = "interrupt"
	KindCheckpoint    = "checkpoint"
	KindDefer         = "defer"
	KindWithHandlers  = "with_handlers"
	KindWithRestart   = "with_restart"
	KindInvokeRestart = "invoke_restart"
)

var kinds = []string{
	KindLog, KindReturn, KindSignal, KindError, KindWarning, KindMessage,
	KindInterrupt, KindCheckpoint, KindDefer, KindWithHandlers,
	KindWithRestart, KindInvokeRestart,
}

// Scenario is a named step list run as one top-level computation.
type Scenario struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Steps       []Step `mapstructure:"steps"`
}

// Step is one instruction. Kind selects which of the other fields is set.
type Step struct {
	Kind string

	// Text is the argument of log, error, warning, message and interrupt.
	Text string
	// Value is the argument of return.
	Value any

	Signal        *SignalStep
	Defer         *DeferStep
	WithHandlers  *WithHandlersStep
	WithRestart   *WithRestartStep
	InvokeRestart *InvokeRestartStep
}

// SignalStep signals a condition with arbitrary classes.
type SignalStep struct {
	Classes []string       `mapstructure:"classes"`
	Message string         `mapstructure:"message"`
	Data    map[string]any `mapstructure:"data"`
}

// DeferStep registers a cleanup guard on the innermost extent.
type DeferStep struct {
	Log  string `mapstructure:"log"`
	Fail string `mapstructure:"fail"`
}

// HandlerSpec describes one handler of a with_handlers step.
type HandlerSpec struct {
	Discipline    string             `mapstructure:"discipline"`
	Classes       []string           `mapstructure:"classes"`
	Log           string             `mapstructure:"log"`
	Return        any                `mapstructure:"return"`
	InvokeRestart *InvokeRestartStep `mapstructure:"invoke_restart"`
}

// WithHandlersStep runs Body with Handlers established.
type WithHandlersStep struct {
	Handlers []HandlerSpec `mapstructure:"handlers"`
	Body     []Step        `mapstructure:"body"`
}

// WithRestartStep runs Body with a restart established. Invoking the
// restart yields Return when set, else the first argument.
type WithRestartStep struct {
	Name   string `mapstructure:"name"`
	Return any    `mapstructure:"return"`
	Log    string `mapstructure:"log"`
	Body   []Step `mapstructure:"body"`
}

// InvokeRestartStep invokes the innermost restart named Name.
type InvokeRestartStep struct {
	Name string `mapstructure:"name"`
	Args []any  `mapstructure:"args"`
}

// Load reads and validates the scenario file at path. A scenario without a
// name is named after the file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(baseName(path), ".yaml")
	}
	return sc, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Parse decodes and validates a scenario document. Unknown keys are
// rejected at every level.
func Parse(data []byte) (*Scenario, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	var sc Scenario
	if err := decode(raw, &sc); err != nil {
		return nil, err
	}
	if err := Validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

var stepType = reflect.TypeOf(Step{})

func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  stepHook,
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// stepHook turns single-key mappings into Steps so nested bodies decode
// through the same path.
func stepHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stepType {
		return data, nil
	}
	return parseStep(data)
}

func parseStep(data any) (Step, error) {
	m, ok := data.(map[string]any)
	if !ok || len(m) != 1 {
		return Step{}, fmt.Errorf("step must be a mapping with exactly one key, got %v", data)
	}
	var s Step
	for k, v := range m {
		s.Kind = k
		if err := s.decodeArg(v); err != nil {
			return Step{}, fmt.Errorf("%s: %w", k, err)
		}
	}
	return s, nil
}

func (s *Step) decodeArg(v any) error {
	if !slices.Contains(kinds, s.Kind) {
		return fmt.Errorf("unknown step kind (want one of %s)", strings.Join(kinds, ", "))
	}
	switch s.Kind {
	case KindLog, KindError, KindWarning, KindMessage, KindInterrupt:
		if v == nil {
			return nil
		}
		text, ok := v.(string)
		if !ok {
			text = fmt.Sprint(v)
		}
		s.Text = text
		return nil
	case KindReturn:
		s.Value = v
		return nil
	case KindCheckpoint:
		return nil
	}
	if v == nil {
		return nil
	}
	switch s.Kind {
	case KindSignal:
		s.Signal = new(SignalStep)
		return decode(v, s.Signal)
	case KindDefer:
		s.Defer = new(DeferStep)
		return decode(v, s.Defer)
	case KindWithHandlers:
		s.WithHandlers = new(WithHandlersStep)
		return decode(v, s.WithHandlers)
	case KindWithRestart:
		s.WithRestart = new(WithRestartStep)
		return decode(v, s.WithRestart)
	case KindInvokeRestart:
		s.InvokeRestart = new(InvokeRestartStep)
		return decode(v, s.InvokeRestart)
	}
	return nil
}

// Validate checks handler disciplines and restart names throughout sc.
func Validate(sc *Scenario) error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	return validateSteps("steps", sc.Steps)
}

func validateSteps(path string, steps []Step) error {
	for i, s := range steps {
		at := fmt.Sprintf("%s[%d].%s", path, i, s.Kind)
		if err := validateStep(at, &s); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(at string, s *Step) error {
	switch s.Kind {
	case KindSignal:
		if s.Signal == nil {
			return fmt.Errorf("%s: classes or message is required", at)
		}
	case KindDefer:
		if s.Defer == nil {
			return fmt.Errorf("%s: log or fail is required", at)
		}
	case KindWithHandlers:
		w := s.WithHandlers
		if w == nil || len(w.Handlers) == 0 {
			return fmt.Errorf("%s: handlers list is required", at)
		}
		for j, h := range w.Handlers {
			if !slices.Contains([]string{"exiting", "calling"}, h.Discipline) {
				return fmt.Errorf("%s.handlers[%d]: discipline must be exiting or calling, got %q", at, j, h.Discipline)
			}
			if h.InvokeRestart != nil && h.InvokeRestart.Name == "" {
				return fmt.Errorf("%s.handlers[%d].invoke_restart: name is required", at, j)
			}
		}
		return validateSteps(at+".body", w.Body)
	case KindWithRestart:
		if s.WithRestart == nil || s.WithRestart.Name == "" {
			return fmt.Errorf("%s: name is required", at)
		}
		return validateSteps(at+".body", s.WithRestart.Body)
	case KindInvokeRestart:
		if s.InvokeRestart == nil || s.InvokeRestart.Name == "" {
			return fmt.Errorf("%s: name is required", at)
		}
	}
	return nil
}
