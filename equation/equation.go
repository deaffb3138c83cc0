// Package equation evaluates the condition and weight expressions stored in
// virtual pocket data.
//
// An equation is written as plain source for the default expr engine
// ("depth > 3", "max(1, 10 - depth)") or with an engine prefix
// ("cel:depth > 3", "lua:depth * 2", "js:Math.max(1, depth)").
// Compiled programs are cached process-wide and are safe for concurrent use.
package equation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dimdev/pocket/internal/store"
)

// Engine names an expression language.
type Engine string

const (
	// Expr is github.com/expr-lang/expr, the default engine.
	Expr Engine = "expr"
	// CEL is the Common Expression Language.
	CEL Engine = "cel"
	// Lua runs the expression in a sandboxed Lua state.
	Lua Engine = "lua"
	// JS runs the expression in a goja runtime.
	JS Engine = "js"
)

// Evaluator compiles source for one engine.
type Evaluator interface {
	Compile(source string) (Program, error)
}

// Program is a compiled expression. Implementations must be safe for
// concurrent use.
type Program interface {
	Run(vars map[string]any) (any, error)
}

var (
	enginesMu sync.RWMutex
	engines   = map[Engine]Evaluator{
		Expr: exprEvaluator{},
		CEL:  celEvaluator{},
		Lua:  luaEvaluator{},
		JS:   jsEvaluator{},
	}

	programs = store.NewBounded[Program](store.WithMaxEntries(2048))
)

// RegisterEngine adds or replaces an engine.
func RegisterEngine(engine Engine, evaluator Evaluator) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[engine] = evaluator
	// Drop programs compiled by a replaced evaluator.
	programs.Purge()
}

func lookupEngine(engine Engine) (Evaluator, bool) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	ev, ok := engines[engine]
	return ev, ok
}

// Equation is an expression together with the engine that runs it.
// The zero value is the absent equation.
type Equation struct {
	Engine Engine
	Source string
}

// Parse reads an equation, compiling it once to report syntax errors early.
func Parse(s string) (Equation, error) {
	src := strings.TrimSpace(s)
	engine := Expr
	if i := strings.IndexByte(src, ':'); i > 0 {
		if _, ok := lookupEngine(Engine(src[:i])); ok {
			engine = Engine(src[:i])
			src = strings.TrimSpace(src[i+1:])
		}
	}
	if src == "" {
		return Equation{}, wrapError(engine, s, fmt.Errorf("expression must not be empty"))
	}

	eq := Equation{Engine: engine, Source: src}
	if _, err := eq.program(); err != nil {
		return Equation{}, err
	}
	return eq, nil
}

// MustParse is Parse for equations known at compile time.
func MustParse(s string) Equation {
	eq, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return eq
}

// Constant returns an equation that always yields v.
func Constant(v float64) Equation {
	return Equation{Engine: Expr, Source: strconv.FormatFloat(v, 'g', -1, 64)}
}

// IsZero reports whether the equation is absent.
func (e Equation) IsZero() bool {
	return e.Source == ""
}

// String returns the stored form, with a prefix for non-default engines.
func (e Equation) String() string {
	if e.Engine == "" || e.Engine == Expr {
		return e.Source
	}
	return string(e.Engine) + ":" + e.Source
}

// Evaluate runs the equation against vars.
func (e Equation) Evaluate(vars map[string]any) (any, error) {
	prog, err := e.program()
	if err != nil {
		return nil, err
	}
	out, err := prog.Run(vars)
	if err != nil {
		return nil, wrapError(e.engine(), e.Source, err)
	}
	return out, nil
}

// Float evaluates the equation as a number. Booleans count as 1 and 0.
func (e Equation) Float(vars map[string]any) (float64, error) {
	out, err := e.Evaluate(vars)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(out)
	if !ok {
		return 0, wrapError(e.engine(), e.Source, fmt.Errorf("result %v (%T) is not a number", out, out))
	}
	return f, nil
}

// Bool evaluates the equation as a condition. Non-zero numbers are true.
func (e Equation) Bool(vars map[string]any) (bool, error) {
	out, err := e.Evaluate(vars)
	if err != nil {
		return false, err
	}
	if b, ok := out.(bool); ok {
		return b, nil
	}
	f, ok := toFloat(out)
	if !ok {
		return false, wrapError(e.engine(), e.Source, fmt.Errorf("result %v (%T) is not a condition", out, out))
	}
	return f != 0, nil
}

func (e Equation) engine() Engine {
	if e.Engine == "" {
		return Expr
	}
	return e.Engine
}

func (e Equation) program() (Program, error) {
	engine := e.engine()
	if e.Source == "" {
		return nil, wrapError(engine, e.Source, fmt.Errorf("expression must not be empty"))
	}

	key := string(engine) + "\x00" + e.Source
	if prog, ok := programs.Get(key); ok {
		return prog, nil
	}

	ev, ok := lookupEngine(engine)
	if !ok {
		return nil, wrapError(engine, e.Source, fmt.Errorf("unknown engine"))
	}
	prog, err := ev.Compile(e.Source)
	if err != nil {
		return nil, wrapError(engine, e.Source, err)
	}
	programs.Set(key, prog)
	return prog, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
