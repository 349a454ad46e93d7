// ABOUTME: Character substitutions that stop re-published text re-notifying people
// ABOUTME: or re-entering hashtag timelines.
package segment

import "unicode"

// SubstituteMentions replaces word-leading @ with the fullwidth ＠ so that
// re-published text does not ping the accounts it once mentioned.
func SubstituteMentions(text string) string {
	return substitute(text, '@', '＠')
}

// SubstituteHashtags replaces word-leading # with ⋕ so that re-published
// text stays out of hashtag timelines.
func SubstituteHashtags(text string) string {
	return substitute(text, '#', '⋕')
}

// substitute rewrites old to repl wherever it starts a word: at the start of
// the text or after whitespace. The final character is left alone, since a
// trailing marker cannot form a mention or tag.
func substitute(text string, old, repl rune) string {
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] == old && (i == 0 || unicode.IsSpace(runes[i-1])) {
			runes[i] = repl
		}
	}
	return string(runes)
}
