package internal

import (
	"fmt"
	"regexp"
)

type SanitizationError struct {
	Message string
	Details string
}

func (e *SanitizationError) Error() string {
	return e.Message + ": " + e.Details
}

// SanitizeCode rejects code that trips a per-language deny-list. It is a
// coarse filter for obviously hostile submissions, not a sandbox.
func SanitizeCode(code, language string, maxCodeLength int) error {
	if maxCodeLength > 0 && len(code) > maxCodeLength {
		return &SanitizationError{
			Message: "Code length exceeds maximum limit",
			Details: fmt.Sprintf("Max length allowed is %d", maxCodeLength),
		}
	}

	// Check for obvious dangerous operations regardless of language
	dangerousPatterns := []string{
		`rm\s+-[a-zA-Z]*[rf]`,
		`/etc/(passwd|shadow)`,
		`(?i)\bmkfifo\b`,
	}

	if matched, err := matchPatterns(dangerousPatterns, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited dangerous operation detected",
			Details: "Code contains potentially harmful system operations",
		}
	}

	switch language {
	case "python":
		return sanitizePython(code)
	case "javascript":
		return sanitizeJS(code)
	case "cpp":
		return sanitizeCPP(code)
	case "java":
		return sanitizeJava(code)
	default:
		return &SanitizationError{
			Message: "Unsupported language",
			Details: language,
		}
	}
}

func sanitizePython(code string) error {
	// Blacklist clearly dangerous modules
	dangerousModules := []string{
		`(?m)import\s+os\s*$`,
		`from\s+os\s+import\s+(system|popen|execl|execle|execlp|execv|execve|execvp|execvpe|spawn)`,
		`import\s+subprocess`,
		`import\s+shutil`,
		`import\s+ctypes`,
		`import\s+sys`,
		`__import__\(['"]os['"]`,
	}

	if matched, err := matchPatterns(dangerousModules, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited Python module detected",
			Details: "Code attempts to import restricted system modules",
		}
	}

	dangerousOps := []string{
		`open\(.+,\s*['"]w['"]`, // Writing to files
		`__import__\(`,
		`eval\(`,
		`exec\(`,
		`globals\(\)\.`,
		`locals\(\)\.`,
	}

	if matched, err := matchPatterns(dangerousOps, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited Python operation detected",
			Details: "Code attempts to perform potentially unsafe operations",
		}
	}

	return nil
}

func sanitizeJS(code string) error {
	dangerousModules := []string{
		`require\(['"](node:)?fs['"]`,
		`require\(['"](node:)?child_process['"]`,
		`require\(['"](node:)?https?['"]`,
		`require\(['"](node:)?net['"]`,
		`require\(['"](node:)?os['"]`,
		`import\s+.*\s+from\s+['"](node:)?fs['"]`,
		`import\s+.*\s+from\s+['"](node:)?child_process['"]`,
	}

	if matched, err := matchPatterns(dangerousModules, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited JS module detected",
			Details: "Code attempts to import restricted system modules",
		}
	}

	dangerousOps := []string{
		`process\.exit`,
		`process\.kill`,
		`eval\(`,
		`new Function`,
		`WebSocket`,
	}

	if matched, err := matchPatterns(dangerousOps, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited JS operation detected",
			Details: "Code attempts to perform potentially unsafe operations",
		}
	}

	return nil
}

func sanitizeCPP(code string) error {
	dangerousPatterns := []string{
		`\bsystem\(`,
		`\bexec[lv]p?e?\(`,
		`\bfork\(`,
		`\bpopen\(`,
		`std::system`,
		`#include\s*<(sys/socket|netinet/in|unistd)\.h>`,
	}

	if matched, err := matchPatterns(dangerousPatterns, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited C++ operation detected",
			Details: "Code attempts to perform potentially unsafe operations",
		}
	}

	return nil
}

func sanitizeJava(code string) error {
	dangerousPatterns := []string{
		`Runtime\.getRuntime\(\)`,
		`ProcessBuilder`,
		`System\.exit`,
		`java\.net\.`,
		`java\.nio\.file\.`,
		`java\.lang\.reflect`,
		`new\s+File(Output|Writer)`,
	}

	if matched, err := matchPatterns(dangerousPatterns, code); err != nil || matched {
		return &SanitizationError{
			Message: "Prohibited Java operation detected",
			Details: "Code attempts to perform potentially unsafe operations",
		}
	}

	return nil
}

func matchPatterns(patterns []string, code string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := regexp.MatchString(pattern, code)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
