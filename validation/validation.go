package validation

import (
	"strings"
	"unicode"
)

// IsValidPrompt checks if a prompt makes sense (not gibberish).
// An empty prompt is not valid here; callers that accept "no prompt" check
// for that before calling.
func IsValidPrompt(prompt string) bool {
	trimmed := strings.TrimSpace(prompt)
	if len(trimmed) < 3 || len(trimmed) > 10000 {
		return false
	}

	words := strings.Fields(trimmed)
	if len(words) == 1 {
		return !isRepeatedCharacters(words[0]) && !hasKeyboardMashing(trimmed)
	}

	if hasExcessiveRepetition(trimmed) || hasKeyboardMashing(trimmed) {
		return false
	}

	letters, digits, punct, total := 0, 0, 0, 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punct++
		}
	}
	if total == 0 {
		return false
	}
	if float64(letters)/float64(total) < 0.3 {
		return false
	}
	if float64(digits)/float64(total) > 0.5 {
		return false
	}
	if float64(punct)/float64(total) > 0.3 {
		return false
	}

	short, long := 0, 0
	for _, w := range words {
		clean := strings.Trim(w, ".,!?;:()[]{}\"'")
		if n := len(clean); n > 0 && n <= 2 {
			short++
		} else if n > 30 {
			long++
		}
	}
	if float64(short)/float64(len(words)) > 0.7 {
		return false
	}
	if float64(long)/float64(len(words)) > 0.3 {
		return false
	}

	// Passed every negative check; odd but structured prompts are forwarded.
	return true
}

func isRepeatedCharacters(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// hasExcessiveRepetition catches letter runs like "aaaa" and short units
// repeated four or more times ("abababab"). Digit runs such as 10000 pass.
func hasExcessiveRepetition(s string) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] && unicode.IsLetter(rune(s[i])) {
			run++
			if run >= 4 {
				return true
			}
		} else {
			run = 1
		}
	}
	for unit := 2; unit <= 3; unit++ {
		for i := 0; i+unit*4 <= len(s); i++ {
			pattern := s[i : i+unit]
			if strings.IndexFunc(pattern, unicode.IsLetter) < 0 {
				continue
			}
			repeats := 1
			for j := i + unit; j+unit <= len(s) && s[j:j+unit] == pattern; j += unit {
				repeats++
			}
			if repeats >= 4 {
				return true
			}
		}
	}
	return false
}

func hasKeyboardMashing(s string) bool {
	if len(s) >= 30 {
		return false
	}
	lower := strings.ToLower(s)
	for _, p := range []string{"asdfghjkl", "qwertyuiop", "zxcvbnm", "asdf", "qwer", "zxcv", "hjkl"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
