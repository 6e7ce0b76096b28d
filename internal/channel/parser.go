// Package channel implements the text-messaging dispatcher: a fixed command
// grammar parsed from free text, per-command handlers, outbound delivery and
// scheduled digests.
package channel

import (
	"regexp"
	"strconv"
	"strings"
)

// CommandType enumerates the messaging channel's fixed grammar.
type CommandType string

const (
	CmdExpense    CommandType = "expense"
	CmdReport     CommandType = "report"
	CmdGoal       CommandType = "goal"
	CmdInvestment CommandType = "investment"
	CmdInsight    CommandType = "insight"
)

// Command is a parsed messaging-channel instruction. Expense commands carry
// the extracted structured fields; HasAmount is false when no amount could
// be found and the caller must ask for clarification.
type Command struct {
	Type        CommandType
	Amount      float64
	HasAmount   bool
	Category    string
	Description string
	Raw         string
}

// commandTriggers are evaluated in order; the first trigger whose keyword
// appears in the text decides the command type.
var commandTriggers = []struct {
	cmdType  CommandType
	keywords []string
}{
	{CmdExpense, []string{"spent", "expense", "paid", "bought", "gastei", "gasto", "paguei", "comprei"}},
	{CmdReport, []string{"report", "summary", "relatório", "relatorio", "resumo"}},
	{CmdGoal, []string{"goal", "meta", "objetivo"}},
	{CmdInvestment, []string{"invest"}},
	{CmdInsight, []string{"insight", "tip", "dica"}},
}

// amountPattern matches an optional currency sign followed by a decimal
// number, with either dot or comma as the decimal separator.
var amountPattern = regexp.MustCompile(`(?i)(?:r\$|\$|€|£)?\s*(\d+(?:[.,]\d{1,2})?)`)

// descriptionStopWords are stripped from expense descriptions along with the
// amount text.
var descriptionStopWords = map[string]struct{}{
	"i": {}, "spent": {}, "paid": {}, "bought": {},
	"on": {}, "for": {}, "at": {}, "in": {},
	"eu": {}, "gastei": {}, "paguei": {}, "comprei": {},
	"em": {}, "no": {}, "na": {}, "com": {}, "de": {}, "reais": {},
}

// categoryKeywords maps recognizable merchant/context words to a spending
// category. Unmatched descriptions fall back to "other".
var categoryKeywords = map[string][]string{
	"food":           {"food", "lunch", "dinner", "restaurant", "grocery", "mercado", "comida", "almoço", "almoco", "lanche", "ifood"},
	"transportation": {"uber", "taxi", "bus", "train", "gas", "fuel", "gasolina", "ônibus", "onibus", "99"},
	"housing":        {"rent", "aluguel", "condomínio", "condominio", "luz", "água", "agua", "internet"},
	"entertainment":  {"movie", "cinema", "netflix", "spotify", "show", "game", "jogo"},
	"healthcare":     {"pharmacy", "farmácia", "farmacia", "doctor", "médico", "medico", "remédio", "remedio"},
	"shopping":       {"clothes", "roupa", "shopping", "amazon", "loja"},
}

// categoryOrder keeps lookup deterministic.
var categoryOrder = []string{"food", "transportation", "housing", "entertainment", "healthcare", "shopping"}

// Parse maps free text to a command via ordered substring checks. It returns
// false when no command keyword is present; that is the defined fallback,
// not an error.
func Parse(text string) (Command, bool) {
	lowered := strings.ToLower(text)

	for _, trigger := range commandTriggers {
		for _, kw := range trigger.keywords {
			if !strings.Contains(lowered, kw) {
				continue
			}
			cmd := Command{Type: trigger.cmdType, Raw: text}
			if trigger.cmdType == CmdExpense {
				cmd.Amount, cmd.HasAmount = parseAmount(text)
				cmd.Category = matchCategory(lowered)
				cmd.Description = cleanDescription(text)
			}
			return cmd, true
		}
	}
	return Command{}, false
}

// parseAmount extracts the first monetary value from the text. The boolean
// result is false when no amount is present.
func parseAmount(text string) (float64, bool) {
	match := amountPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	normalized := strings.ReplaceAll(match[1], ",", ".")
	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// matchCategory looks the lowercased text up against the category keyword
// dictionary.
func matchCategory(lowered string) string {
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lowered, kw) {
				return cat
			}
		}
	}
	return "other"
}

// cleanDescription strips the amount text and the stop-word set from the
// input. A remainder of three characters or fewer counts as no description.
func cleanDescription(text string) string {
	withoutAmount := amountPattern.ReplaceAllString(text, " ")

	var kept []string
	for _, tok := range strings.Fields(withoutAmount) {
		if _, stop := descriptionStopWords[strings.ToLower(strings.Trim(tok, ".,!?"))]; stop {
			continue
		}
		kept = append(kept, tok)
	}

	desc := strings.TrimSpace(strings.Join(kept, " "))
	if len(desc) <= 3 {
		return ""
	}
	return desc
}
