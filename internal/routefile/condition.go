package routefile

import (
	"net/http"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// conditionEnv is the environment `when` expressions are evaluated in.
type conditionEnv struct {
	Method string            `expr:"method"`
	Path   string            `expr:"path"`
	Host   string            `expr:"host"`
	Query  map[string]string `expr:"query"`
	Header map[string]string `expr:"header"`
	Params map[string]string `expr:"params"`
}

// compileCondition compiles a boolean request condition.
func compileCondition(source string) (*vm.Program, error) {
	return expr.Compile(source, expr.Env(conditionEnv{}), expr.AsBool())
}

// conditionFunc returns a predicate evaluating program against a request.
// Evaluation errors count as a non-match.
func conditionFunc(program *vm.Program, params []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		out, err := expr.Run(program, newConditionEnv(r, params))
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}

func newConditionEnv(r *http.Request, params []string) conditionEnv {
	env := conditionEnv{
		Method: r.Method,
		Path:   r.URL.Path,
		Host:   r.Host,
		Query:  make(map[string]string),
		Header: make(map[string]string, len(r.Header)),
		Params: make(map[string]string, len(params)),
	}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			env.Query[k] = v[0]
		}
	}
	for k, v := range r.Header {
		if len(v) > 0 {
			env.Header[k] = v[0]
		}
	}
	for _, name := range params {
		env.Params[name] = r.PathValue(name)
	}
	return env
}
