package equation

import (
	"fmt"
	"sort"

	"github.com/Shopify/go-lua"
)

type luaEvaluator struct{}

func (luaEvaluator) Compile(source string) (Program, error) {
	chunk := "return (" + source + ")"
	l := lua.NewState()
	if err := lua.LoadString(l, chunk); err != nil {
		return nil, luaError(l, err)
	}
	return &luaProgram{chunk: chunk}, nil
}

// luaProgram keeps the chunk text; a lua.State is single threaded so every
// run loads it into a fresh sandbox.
type luaProgram struct {
	chunk string
}

func (p *luaProgram) Run(vars map[string]any) (any, error) {
	l := lua.NewState()
	openSandbox(l)

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pushValue(l, vars[name])
		l.SetGlobal(name)
	}

	if err := lua.LoadString(l, p.chunk); err != nil {
		return nil, luaError(l, err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return nil, luaError(l, err)
	}
	out := pullValue(l, -1)
	l.Pop(1)
	return out, nil
}

// openSandbox loads the libraries an expression may use and nothing that
// touches the host.
func openSandbox(l *lua.State) {
	lua.Require(l, "_G", lua.BaseOpen, true)
	l.Pop(1)
	lua.Require(l, "string", lua.StringOpen, true)
	l.Pop(1)
	lua.Require(l, "math", lua.MathOpen, true)
	l.Pop(1)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "print"} {
		l.PushNil()
		l.SetGlobal(name)
	}
}

func luaError(l *lua.State, err error) error {
	if msg, ok := l.ToString(-1); ok && msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return err
}

func pushValue(l *lua.State, v any) {
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case int:
		l.PushInteger(val)
	case int8:
		l.PushInteger(int(val))
	case int16:
		l.PushInteger(int(val))
	case int32:
		l.PushInteger(int(val))
	case int64:
		l.PushInteger(int(val))
	case float32:
		l.PushNumber(float64(val))
	case float64:
		l.PushNumber(val)
	case string:
		l.PushString(val)
	case []any:
		l.NewTable()
		for i, item := range val {
			l.PushInteger(i + 1)
			pushValue(l, item)
			l.SetTable(-3)
		}
	case map[string]any:
		l.NewTable()
		for k, item := range val {
			l.PushString(k)
			pushValue(l, item)
			l.SetTable(-3)
		}
	default:
		l.PushString(fmt.Sprint(val))
	}
}

// pullValue reads scalars only; expressions yield a number or a boolean.
func pullValue(l *lua.State, idx int) any {
	switch l.TypeOf(idx) {
	case lua.TypeBoolean:
		return l.ToBoolean(idx)
	case lua.TypeNumber:
		n, _ := l.ToNumber(idx)
		return n
	case lua.TypeString:
		s, _ := l.ToString(idx)
		return s
	default:
		return nil
	}
}
