package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// mathRefusal is returned when a math request carries anything beyond
// plain arithmetic. The expression is never evaluated in that case.
const mathRefusal = "nice try bestie, I only do normal math 💅"

const passwordMaxLength = 20

// fastPathRule is one deterministic or canned-random reply that
// bypasses the generation call. Rules run in slice order; the first
// match wins.
type fastPathRule struct {
	name    string
	matches func(lowered string) bool
	respond func(p *Planner, lowered string) string
}

var jokes = []string{
	"why did the gamer cross the road? to get to the respawn point 💀",
	"my code doesn't have bugs, it has surprise features wallah",
	"I told my wifi a joke once. it didn't get it, kept buffering",
	"what do you call a lagging boss fight? a slideshow with extra steps",
	"debugging: being the detective in a crime movie where you're also the murderer",
	"my sleep schedule has more resets than a soulslike run",
}

var greetings = []string{
	"yalla hi!! what's good 🔥",
	"heyyy bestie, you summoned me?",
	"aywa aywa, look who showed up",
	"hii! I was literally just vibing, talk to me",
	"wallah you have perfect timing, hi",
}

var greetingElaborations = []string{
	"what chaos are we getting into today?",
	"tell me something interesting, I'm bored",
	"I've been grinding all day, entertain me",
}

var statusLines = []string{
	"running on caffeine and pure chaos, as usual",
	"thriving, plotting, slightly sleep deprived",
	"wallah I'm great, my ping is not",
	"living my best chaotic life, you?",
	"vibes are immaculate today, no cap",
}

var laughAcks = []string{
	"IK I'm hilarious 💅",
	"glad someone appreciates my comedy career",
	"lmaooo see, this is why we're friends",
	"my jokes land 100% of the time, 60% of the time",
}

var foodSuggestions = []string{
	"shawarma. the answer is always shawarma",
	"falafel wrap and you will thank me later",
	"mansaf if you're feeling fancy, wallah",
	"pizza, but only if it has extra cheese",
	"get yourself some knafeh, trust the process",
}

var tips = []string{
	"drink water bestie, your hydration stat is low",
	"save your game before the boss. always. ALWAYS.",
	"never push to production on a friday, wallah",
	"touch grass between matches, it resets the tilt",
	"if the code works, don't ask why. walk away slowly",
}

var chaoticLines = []string{
	"random thought: what if npcs gossip about us when we log off",
	"I just remembered an embarrassing thing from 2019 and I need everyone to know I'm suffering",
	"hot take: loading screens are just the game judging you",
	"ok but why is 3am the only valid time for deep convos",
	"I would fight a seagull for the last slice of pizza, no hesitation",
}

var dayColors = map[time.Weekday]string{
	time.Sunday:    "lazy gold, obviously",
	time.Monday:    "grey. mondays are grey and nobody can tell me otherwise",
	time.Tuesday:   "electric blue, grind mode",
	time.Wednesday: "green, we're halfway there bestie",
	time.Thursday:  "purple, chaotic energy rising",
	time.Friday:    "RED. hype day. let's gooo",
	time.Saturday:  "neon pink, it's a vibe",
}

const helpSummary = `here's what I can do without even thinking:
- tell you a joke
- flip a coin / roll a dice
- do your math homework (the easy kind)
- generate a password
- suggest food (always shawarma)
- drop a random tip
- tell you the color of the day
everything else? we just talk 💅`

// fastPaths is the fixed priority order of canned replies.
var fastPaths = []fastPathRule{
	{
		name:    "joke",
		matches: containsAny("joke", "make me laugh", "funny"),
		respond: func(p *Planner, _ string) string { return p.rng.pick(jokes) },
	},
	{
		name:    "weather",
		matches: containsAny("weather", "raining", "sunny outside"),
		respond: func(p *Planner, _ string) string { return p.rng.pick(greetings) },
	},
	{
		name:    "greeting",
		matches: isGreeting,
		respond: func(p *Planner, _ string) string {
			reply := p.rng.pick(greetings)
			if p.rng.float64() < 0.3 {
				reply += " " + p.rng.pick(greetingElaborations)
			}
			return reply
		},
	},
	{
		name:    "status",
		matches: containsAny("how are you", "how r u", "how's it going", "hows it going", "what's up", "whats up"),
		respond: func(p *Planner, _ string) string { return p.rng.pick(statusLines) },
	},
	{
		name:    "laugh",
		matches: containsAny("lol", "lmao", "haha", "hahaha", "😂", "🤣"),
		respond: func(p *Planner, _ string) string { return p.rng.pick(laughAcks) },
	},
	{
		name:    "math",
		matches: isMathRequest,
		respond: func(p *Planner, lowered string) string { return evaluateMathRequest(lowered) },
	},
	{
		name:    "password",
		matches: containsAny("password"),
		respond: func(p *Planner, lowered string) string { return p.generatePassword(lowered) },
	},
	{
		name:    "coinflip",
		matches: containsAny("flip a coin", "flip coin", "coin flip", "coinflip"),
		respond: func(p *Planner, _ string) string {
			if p.rng.float64() < 0.5 {
				return "heads"
			}
			return "tails"
		},
	},
	{
		name:    "dice",
		matches: containsAny("roll a dice", "roll dice", "roll a die", "dice roll"),
		respond: func(p *Planner, _ string) string { return strconv.Itoa(p.rng.intn(6) + 1) },
	},
	{
		name:    "food",
		matches: containsAny("what should i eat", "food suggestion", "i'm hungry", "im hungry", "suggest food"),
		respond: func(p *Planner, _ string) string { return p.rng.pick(foodSuggestions) },
	},
	{
		name:    "tip",
		matches: containsAny("give me a tip", "any tips", "pro tip"),
		respond: func(p *Planner, _ string) string { return p.rng.pick(tips) },
	},
	{
		name:    "color",
		matches: containsAny("color of the day", "colour of the day"),
		respond: func(p *Planner, _ string) string { return dayColors[time.Now().Weekday()] },
	},
	{
		name:    "help",
		matches: containsAny("help", "what can you do"),
		respond: func(p *Planner, _ string) string { return helpSummary },
	},
}

func loweredText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitWords(s string) []string {
	return strings.Fields(s)
}

func containsAny(keywords ...string) func(string) bool {
	return func(lowered string) bool {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
		return false
	}
}

// isGreeting matches only short salutations so "hi, can you review
// this huge thing" still reaches the model.
func isGreeting(lowered string) bool {
	trimmed := strings.TrimSpace(lowered)
	for _, g := range []string{"hi", "hello", "hey", "yo", "hiya", "good morning", "good evening", "salam", "marhaba"} {
		if trimmed == g || strings.HasPrefix(trimmed, g+" ") || strings.HasPrefix(trimmed, g+"!") || strings.HasPrefix(trimmed, g+",") {
			if len(strings.Fields(trimmed)) <= 4 {
				return true
			}
		}
	}
	return false
}

// isMathRequest requires both an arithmetic keyword and an operator so
// ordinary sentences with numbers don't trip the evaluator.
func isMathRequest(lowered string) bool {
	if !containsAny("calculate", "calc", "math", "solve", "what is", "what's")(lowered) {
		return false
	}
	return strings.ContainsAny(lowered, "+-*/")
}

// evaluateMathRequest extracts and evaluates the arithmetic part of a
// message. Anything outside digits, +-*/.(), and spaces is refused
// outright; arbitrary expressions are never evaluated.
func evaluateMathRequest(lowered string) string {
	expr := extractExpression(lowered)
	if expr == "" {
		return mathRefusal
	}
	result, err := evalArithmetic(expr)
	if err != nil {
		return mathRefusal
	}
	return formatNumber(result)
}

// extractExpression pulls the longest run of arithmetic characters out
// of the message and verifies the remainder of the request after the
// keyword carries nothing suspicious.
func extractExpression(lowered string) string {
	// Find where the arithmetic payload starts.
	start := -1
	for i, r := range lowered {
		if r >= '0' && r <= '9' || r == '(' {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	payload := strings.TrimSpace(lowered[start:])
	for _, r := range payload {
		if !isArithmeticRune(r) {
			return ""
		}
	}
	return payload
}

func isArithmeticRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '*' || r == '/' || r == '.' || r == '(' || r == ')' || r == ' ':
		return true
	}
	return false
}

// evalArithmetic evaluates a restricted arithmetic expression with a
// hand-rolled recursive-descent parser. Only +-*/, decimals, and
// parentheses exist; there is deliberately no identifier or call
// syntax to evaluate.
func evalArithmetic(expr string) (float64, error) {
	p := &exprParser{input: strings.ReplaceAll(expr, " ", "")}
	val, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at %d", p.pos)
	}
	return val, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.input) {
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			break
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.input) {
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			break
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
	return left, nil
}

func (p *exprParser) parseFactor() (float64, error) {
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	if p.input[p.pos] == '-' {
		p.pos++
		val, err := p.parseFactor()
		return -val, err
	}

	if p.input[p.pos] == '(' {
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at %d", start)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generatePassword produces a random alphanumeric string. Requested
// length defaults to 8 and is hard-capped at 20.
func (p *Planner) generatePassword(lowered string) string {
	length := 8
	for _, field := range strings.Fields(lowered) {
		if n, err := strconv.Atoi(field); err == nil && n > 0 {
			length = n
			break
		}
	}
	if length > passwordMaxLength {
		length = passwordMaxLength
	}

	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(passwordAlphabet[p.rng.intn(len(passwordAlphabet))])
	}
	return sb.String()
}
