package equation

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"

	"github.com/dimdev/pocket"
)

// celVariables are declared dynamically typed; caller variables beyond the
// standard set are reached through vars, e.g. vars.biome == "void".
var celVariables = []string{
	pocket.VarDepth,
	pocket.VarWorld,
	pocket.VarSourceWorld,
	pocket.VarSize,
	pocket.VarVars,
}

type celEvaluator struct{}

func (celEvaluator) Compile(source string) (Program, error) {
	opts := make([]celgo.EnvOption, 0, len(celVariables))
	for _, name := range celVariables {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &celProgram{program: prg}, nil
}

type celProgram struct {
	program celgo.Program
}

func (p *celProgram) Run(vars map[string]any) (any, error) {
	activation := make(map[string]any, len(celVariables))
	for _, name := range celVariables {
		v, ok := vars[name]
		if !ok {
			return nil, fmt.Errorf("missing variable %q", name)
		}
		activation[name] = v
	}
	out, _, err := p.program.Eval(activation)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
