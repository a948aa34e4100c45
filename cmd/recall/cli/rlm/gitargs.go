package rlm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sanitizer errors.
var (
	ErrDisallowedFlag     = errors.New("disallowed-flag")
	ErrInvalidN           = errors.New("invalid-n")
	ErrDangerousCharacter = errors.New("dangerous-character")
)

// dangerousChars are shell metacharacters rejected anywhere in an argument.
const dangerousChars = "|;&$`\\"

// allowedFlags is the closed set of git log flags the sandbox may pass.
var allowedFlags = map[string]bool{
	"--format":    true,
	"--author":    true,
	"--since":     true,
	"--until":     true,
	"--grep":      true,
	"--no-merges": true,
	"-n":          true,
}

// maxLogCount caps the -n argument.
const maxLogCount = 50

// SanitizeGitLogArgs validates sandbox-supplied git log arguments. Flags
// must be in the allow-list, -n must carry a numeric value in 1..50, and no
// argument may contain a shell metacharacter. Returns the cleaned args.
func SanitizeGitLogArgs(args []string) ([]string, error) {
	cleaned := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.ContainsAny(arg, dangerousChars) {
			return nil, fmt.Errorf("%w: %q", ErrDangerousCharacter, arg)
		}

		switch {
		case arg == "-n":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: missing count", ErrInvalidN)
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidN, args[i])
			}
			if n > maxLogCount {
				n = maxLogCount
			}
			cleaned = append(cleaned, "-n", strconv.Itoa(n))

		case strings.HasPrefix(arg, "--"):
			flag := arg
			if idx := strings.Index(arg, "="); idx >= 0 {
				flag = arg[:idx]
			}
			if !allowedFlags[flag] {
				return nil, fmt.Errorf("%w: %q", ErrDisallowedFlag, flag)
			}
			cleaned = append(cleaned, arg)

		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("%w: %q", ErrDisallowedFlag, arg)

		default:
			cleaned = append(cleaned, arg)
		}
	}
	return cleaned, nil
}
