package bgremove

import (
	"fmt"
	"sort"
)

// EngineOptions carries the settings of every engine; each reads its own.
type EngineOptions struct {
	Tolerance  float64
	Feather    float64
	MaxSide    int
	Iterations int
	BorderSize int
}

var engines = map[string]func(EngineOptions) Engine{
	KeyingName: func(o EngineOptions) Engine {
		return NewKeyingEngine(o.Tolerance, o.Feather, o.MaxSide)
	},
}

func registerEngine(name string, f func(EngineOptions) Engine) { engines[name] = f }

// Engines lists the engines compiled into this binary.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewEngine builds the named engine; an empty name selects keying.
func NewEngine(name string, o EngineOptions) (Engine, error) {
	if name == "" {
		name = KeyingName
	}
	f, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown background engine %q (available: %v)", name, Engines())
	}
	return f(o), nil
}
