package equation

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct{}

func (exprEvaluator) Compile(source string) (Program, error) {
	program, err := exprlang.Compile(source,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	return &exprProgram{program: program}, nil
}

type exprProgram struct {
	program *exprvm.Program
}

func (p *exprProgram) Run(vars map[string]any) (any, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	return exprlang.Run(p.program, vars)
}
