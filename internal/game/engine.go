// internal/game/engine.go
//
// Feedback engine: scores a guess against a secret.
// Score is pure and deterministic; it is safe to call from any goroutine.

package game

// Score implements the two-pass scoring algorithm.
//
// Pass 1:
//   - Mark exact matches as correct and consume that secret letter.
//   - Count the remaining (unconsumed) secret letters.
//
// Pass 2:
//   - For each unmarked guess letter: if an unconsumed instance remains,
//     mark it present and consume one; otherwise it stays absent.
//
// Each secret letter is claimed at most once, so repeated letters in either
// word never over-count. Inputs are compared rune by rune; callers normalize
// case beforehand.
func Score(guess, secret string) []Mark {
	g := []rune(guess)
	s := []rune(secret)
	n := len(s)
	res := make([]Mark, n)

	remaining := make(map[rune]int, n)
	for i := 0; i < n; i++ {
		res[i] = MarkAbsent
		if i < len(g) && g[i] == s[i] {
			res[i] = MarkCorrect
			continue
		}
		remaining[s[i]]++
	}

	for i := 0; i < n && i < len(g); i++ {
		if res[i] == MarkCorrect {
			continue
		}
		if remaining[g[i]] > 0 {
			res[i] = MarkPresent
			remaining[g[i]]--
		}
	}
	return res
}

// HasWon returns true if every mark is MarkCorrect.
func HasWon(m []Mark) bool {
	if len(m) == 0 {
		return false
	}
	for _, x := range m {
		if x != MarkCorrect {
			return false
		}
	}
	return true
}
