package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCodeAllowsOrdinaryPrograms(t *testing.T) {
	cases := map[string]string{
		"python":     "n = int(input())\nprint(n * 2)\n",
		"javascript": "const lines = require('readline');\nconsole.log(42);\n",
		"cpp":        "#include <iostream>\nint main(){int a;std::cin>>a;std::cout<<a;}\n",
		"java":       "import java.util.Scanner;\npublic class Main { public static void main(String[] a){ System.out.println(new Scanner(System.in).nextInt()); } }\n",
	}
	for language, code := range cases {
		t.Run(language, func(t *testing.T) {
			assert.NoError(t, SanitizeCode(code, language, 10000))
		})
	}
}

func TestSanitizeCodeRejects(t *testing.T) {
	cases := []struct {
		name     string
		language string
		code     string
		message  string
	}{
		{"python subprocess", "python", "import subprocess\n", "Prohibited Python module detected"},
		{"python eval", "python", "eval('1+1')", "Prohibited Python operation detected"},
		{"js child_process", "javascript", "require('child_process').exec('ls')", "Prohibited JS module detected"},
		{"js exit", "javascript", "process.exit(1)", "Prohibited JS operation detected"},
		{"cpp system", "cpp", "int main(){ system(\"ls\"); }", "Prohibited C++ operation detected"},
		{"java runtime", "java", "Runtime.getRuntime().exec(\"ls\");", "Prohibited Java operation detected"},
		{"any rm", "python", "print('rm -rf /')", "Prohibited dangerous operation detected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := SanitizeCode(tc.code, tc.language, 10000)
			require.Error(t, err)
			var se *SanitizationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.message, se.Message)
		})
	}
}

func TestSanitizeCodeLengthAndLanguage(t *testing.T) {
	err := SanitizeCode(strings.Repeat("x", 11), "python", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Max length allowed is 10")

	err = SanitizeCode("print(1)", "cobol", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported language")
}
