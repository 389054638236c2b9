// Package fallback answers from a fixed keyword table when the model path is unusable.
package fallback

import (
	"strings"
	"unicode"
)

// Topic names a fallback rule.
type Topic string

const (
	Contract  Topic = "contract"
	Lawsuit   Topic = "lawsuit"
	Copyright Topic = "copyright"
	Trademark Topic = "trademark"
	Divorce   Topic = "divorce"
	Criminal  Topic = "criminal"
	General   Topic = "general"
)

// Rule maps trigger keywords to a canned answer.
type Rule struct {
	Topic    Topic
	Keywords []string
	Response string
}

// rules are checked in order; the first match wins.
var rules = []Rule{
	{
		Topic:    Contract,
		Keywords: []string{"contract", "agreement"},
		Response: "A valid contract generally requires four elements: an offer, acceptance of that offer, " +
			"consideration (something of value exchanged by each side), and the mutual intent to be legally bound. " +
			"The parties must also have legal capacity and the purpose must be lawful. " +
			"If you share the specific terms you are concerned about, I can walk through them with you.",
	},
	{
		Topic:    Lawsuit,
		Keywords: []string{"lawsuit", "sue", "sued", "suing", "litigation"},
		Response: "Before filing a lawsuit, consider whether you have a valid legal claim, whether the deadline " +
			"(statute of limitations) has passed, which court has jurisdiction, and whether the likely recovery justifies the cost. " +
			"Gather your documents and evidence, and consider sending a demand letter or trying mediation first. " +
			"A licensed attorney in your jurisdiction can assess the strength of your case.",
	},
	{
		Topic:    Copyright,
		Keywords: []string{"copyright"},
		Response: "Copyright protects original works of authorship, such as writing, music, art and software, " +
			"from the moment they are fixed in a tangible form. Registration is not required for protection but is usually " +
			"needed before suing for infringement. Fair use may permit limited use for purposes like criticism, teaching or news reporting.",
	},
	{
		Topic:    Trademark,
		Keywords: []string{"trademark"},
		Response: "A trademark protects words, logos, and other marks that identify the source of goods or services. " +
			"Rights arise from use in commerce, and registration strengthens them nationwide. " +
			"Infringement turns on whether a similar mark is likely to confuse consumers. A clearance search before adopting a mark is strongly recommended.",
	},
	{
		Topic:    Divorce,
		Keywords: []string{"divorce", "custody", "alimony"},
		Response: "Divorce proceedings typically address division of marital property and debts, spousal support, " +
			"and, where children are involved, custody, visitation and child support. Requirements such as residency periods " +
			"and grounds vary by jurisdiction. A family law attorney can explain how the rules apply to your situation.",
	},
	{
		Topic:    Criminal,
		Keywords: []string{"criminal", "arrest", "arrested", "crime"},
		Response: "If you are facing a criminal matter, you have the right to remain silent and the right to an attorney. " +
			"Do not discuss the facts of your case with anyone other than your lawyer. " +
			"If you cannot afford a lawyer, you may be entitled to a public defender. Please contact a criminal defense attorney as soon as possible.",
	},
}

// generalResponse is returned when no rule matches.
const generalResponse = "I'm having trouble reaching the legal analysis model right now. " +
	"Could you tell me more about your situation, such as whether it concerns a contract, a dispute or lawsuit, " +
	"intellectual property, family law, or a criminal matter? That will help me point you in the right direction."

// Rules returns a copy of the rule table in priority order.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Match returns the first rule triggered by message, or a General rule when nothing matches.
func Match(message string) Rule {
	words := tokenize(message)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if containsWord(words, keyword) {
				return rule
			}
		}
	}
	return Rule{Topic: General, Response: generalResponse}
}

// Respond returns the canned answer for message.
func Respond(message string) string {
	return Match(message).Response
}

func tokenize(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsWord matches keyword against the start of each word so that
// "contracts" hits "contract" while "issue" does not hit "sue".
func containsWord(words []string, keyword string) bool {
	for _, word := range words {
		if strings.HasPrefix(word, keyword) {
			return true
		}
	}
	return false
}
