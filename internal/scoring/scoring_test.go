package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
		values   []string
	}{
		{
			name:     "number",
			input:    "42",
			expected: []TokenType{TokenNumber, TokenEOF},
			values:   []string{"42", ""},
		},
		{
			name:     "decimal",
			input:    "3.25",
			expected: []TokenType{TokenNumber, TokenEOF},
			values:   []string{"3.25", ""},
		},
		{
			name:     "simple sum",
			input:    "a + 1",
			expected: []TokenType{TokenIdent, TokenPlus, TokenNumber, TokenEOF},
			values:   []string{"a", "+", "1", ""},
		},
		{
			name:     "call",
			input:    "pow(x,2)",
			expected: []TokenType{TokenIdent, TokenLParen, TokenIdent, TokenComma, TokenNumber, TokenRParen, TokenEOF},
			values:   []string{"pow", "(", "x", ",", "2", ")", ""},
		},
		{
			name:     "negated call",
			input:    "-(now_ms()-ts)",
			expected: []TokenType{TokenMinus, TokenLParen, TokenIdent, TokenLParen, TokenRParen, TokenMinus, TokenIdent, TokenRParen, TokenEOF},
			values:   []string{"-", "(", "now_ms", "(", ")", "-", "ts", ")", ""},
		},
		{
			name:     "whitespace ignored",
			input:    "  x *   y ",
			expected: []TokenType{TokenIdent, TokenStar, TokenIdent, TokenEOF},
			values:   []string{"x", "*", "y", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)
			for i, want := range tt.expected {
				tok, err := l.NextToken()
				require.NoError(t, err)
				assert.Equal(t, want, tok.Type, "token %d type", i)
				assert.Equal(t, tt.values[i], tok.Value, "token %d value", i)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{"a & b", "1.", "#"} {
		l := NewLexer(input)
		var err error
		for err == nil {
			var tok Token
			tok, err = l.NextToken()
			if err == nil && tok.Type == TokenEOF {
				t.Fatalf("input %q lexed without error", input)
			}
		}
	}
}

func TestCompileEnvFirstOccurrenceOrder(t *testing.T) {
	tests := []struct {
		input string
		env   []string
	}{
		{"1+2", nil},
		{"x+x", []string{"x"}},
		{"b + a + b", []string{"b", "a"}},
		{"-sqrt(pow(x,2)+pow(y,2))", []string{"x", "y"}},
		{"now_ms() - ts", []string{"ts"}},
		{"pow(price, rank) + price", []string{"price", "rank"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog, err := Compile(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.env, prog.Env)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	inputs := []string{
		"",
		"pow(x)",        // wrong arity
		"pow(x,y,z)",    // wrong arity
		"median(x)",     // unknown function
		"now_ms(1)",     // now_ms takes no args
		"1 +",           // dangling operator
		"(1+2",          // unbalanced parens
		"x y",           // two atoms
		"sqrt 2",        // call without parens is a variable, then a stray atom
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Compile(input)
			require.Error(t, err)
		})
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		input string
		env   []string
		ctx   []float32
		want  float64
	}{
		{"1+2", nil, nil, 3},
		{"(1+2)*3", nil, nil, 9},
		{"pow(2,3)+1", nil, nil, 9},
		{"exp(ln(10))", nil, nil, 10},
		{"-sqrt(pow(x,2)+pow(y,2))", []string{"x", "y"}, []float32{3, 4}, -5},
		{"x+x", []string{"x"}, []float32{21}, 42},
		{"10/4", nil, nil, 2.5},
		{"2*3+4*5", nil, nil, 26},
		{"2-3-4", nil, nil, -5},
		{"-x", []string{"x"}, []float32{7}, -7},
		{"sqrt(2.25)", nil, nil, 1.5},
		{"1 + 2 * pow(2, 2,)", nil, nil, 9}, // trailing comma permitted
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog, err := Compile(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.env, prog.Env)

			got, err := prog.Eval(tt.ctx)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, float64(got), 1e-5)
		})
	}
}

func TestUnaryMinusLowering(t *testing.T) {
	prog, err := Compile("-x")
	require.NoError(t, err)

	require.Len(t, prog.Ops, 3)
	assert.Equal(t, OpPushVar, prog.Ops[0].Kind)
	assert.Equal(t, OpPushNumber, prog.Ops[1].Kind)
	assert.Equal(t, float32(-1), prog.Ops[1].Number)
	assert.Equal(t, OpCall, prog.Ops[2].Kind)
	assert.Equal(t, "*", prog.Ops[2].Name)
	assert.Equal(t, 2, prog.Ops[2].Arity)
}

func TestNowMSCapturedAtCompile(t *testing.T) {
	prog, err := Compile("now_ms()")
	require.NoError(t, err)

	// now_ms folds to a constant: no call remains, and the environment is
	// empty.
	require.Len(t, prog.Ops, 1)
	assert.Equal(t, OpPushNumber, prog.Ops[0].Kind)
	assert.Empty(t, prog.Env)

	first, err := prog.Eval(nil)
	require.NoError(t, err)
	second, err := prog.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same compiled program, same score")
}

func TestEvalErrors(t *testing.T) {
	// A variable index beyond the context is a runtime error.
	prog, err := Compile("x+1")
	require.NoError(t, err)
	_, err = prog.Eval(nil)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)

	// A hand-built program with a stack underflow.
	broken := &Program{Ops: []Op{{Kind: OpCall, Name: "+", Arity: 2}}}
	_, err = broken.Eval(nil)
	require.ErrorAs(t, err, &ee)

	// An empty program leaves nothing on the stack.
	empty := &Program{}
	_, err = empty.Eval(nil)
	require.ErrorAs(t, err, &ee)
}
