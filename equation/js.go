package equation

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct{}

func (jsEvaluator) Compile(source string) (Program, error) {
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", source), false)
	if err != nil {
		return nil, err
	}
	return &jsProgram{program: program}, nil
}

// jsProgram shares the compiled program; each run gets its own runtime since a
// goja.Runtime is not safe for concurrent use.
type jsProgram struct {
	program *goja.Program
}

func (p *jsProgram) Run(vars map[string]any) (any, error) {
	vm := goja.New()
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}
