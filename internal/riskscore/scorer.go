// Package riskscore scores generated emails for phishing indicators on a
// 0-100 scale. The feature weights follow patterns observed in the Seven
// Phishing Email Datasets (figshare 25432108): urgency language,
// credential harvesting, suspicious links and senders push the score up;
// professional register pulls it down.
package riskscore

import (
	"regexp"
	"strings"
)

// Input is the email material under analysis. URLs may be supplied
// explicitly; otherwise they are extracted from the content.
type Input struct {
	Subject string   `json:"subject"`
	Content string   `json:"content"`
	Sender  string   `json:"sender"`
	URLs    []string `json:"urls,omitempty"`
}

// Breakdown itemizes the score by feature category, for the analysis
// panel and for debugging the weights.
type Breakdown struct {
	Subject           int `json:"subject"`
	Content           int `json:"content"`
	URLs              int `json:"urls"`
	Sender            int `json:"sender"`
	SocialEngineering int `json:"social_engineering"`
	Professional      int `json:"professional"` // negative contribution
	Urgency           int `json:"urgency"`
	Grammar           int `json:"grammar"`
	Total             int `json:"total"`
}

var (
	urgentKeywords = []string{
		"urgent", "immediate", "critical", "asap", "action required",
		"verify now", "confirm immediately",
	}
	credentialKeywords = []string{
		"password", "credentials", "login", "account", "verify account",
		"update account", "suspended", "locked",
	}
	financialKeywords = []string{
		"payment", "invoice", "refund", "transaction", "wire transfer",
		"unauthorized charge", "billing",
	}
	securityKeywords = []string{
		"security breach", "unauthorized access", "suspicious activity",
		"fraud detected", "verify identity",
	}
	threatKeywords = []string{
		"account closed", "terminate", "expire", "delete", "permanent",
		"legal action",
	}
	callToActionKeywords = []string{
		"click here", "verify", "confirm", "update", "reactivate",
		"restore", "unlock",
	}
	professionalIndicators = []string{
		"please", "thank you", "sincerely", "best regards", "regards",
		"company name", "contact us", "customer service",
	}
	authorityKeywords   = []string{"bank", "irs", "fbi", "government", "court", "legal", "police"}
	scarcityKeywords    = []string{"limited time", "expires soon", "last chance", "only today"}
	reciprocityKeywords = []string{"free", "bonus", "reward", "prize", "winner"}
	consistencyKeywords = []string{"your account", "your profile", "your information", "we noticed"}
)

var (
	urlRegex         = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	ipInURLRegex     = regexp.MustCompile(`[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}`)
	shortenerRegex   = regexp.MustCompile(`(?i)bit\.ly|tinyurl|t\.co|goo\.gl|short\.link`)
	domainRegex      = regexp.MustCompile(`(?i)https?://([^/]+)`)
	phoneRegex       = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
	punctuationRegex = regexp.MustCompile(`[!?]{2,}`)
	numericRunRegex  = regexp.MustCompile(`[0-9]{4,}`)

	suspiciousSenderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)noreply|no-reply|donotreply`),
		regexp.MustCompile(`(?i)support[0-9]|security[0-9]|admin[0-9]`),
		regexp.MustCompile(`(?i)[a-z]+[0-9]+@`),
	}

	grammarMistakes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)youre account`),
		regexp.MustCompile(`(?i)your account is been`),
		regexp.MustCompile(`(?i)please to click`),
		regexp.MustCompile(`(?i)kindly do the needful`),
		regexp.MustCompile(`(?i)urgent require`),
	}
)

// Score computes the 0-100 risk score for an email.
func Score(in Input) int {
	return Analyze(in).Total
}

// Analyze computes the full per-category breakdown. Category scores are
// individually capped so no single feature dominates, then summed onto a
// base of 50 and clamped to [0,100].
func Analyze(in Input) Breakdown {
	subject := strings.ToLower(in.Subject)
	content := strings.ToLower(in.Content)
	sender := strings.ToLower(in.Sender)
	urls := in.URLs
	if len(urls) == 0 {
		urls = ExtractURLs(content)
	}

	b := Breakdown{
		Subject:           analyzeSubject(subject),
		Content:           analyzeContent(content),
		URLs:              analyzeURLs(urls),
		Sender:            analyzeSender(sender),
		SocialEngineering: analyzeSocialEngineering(subject + " " + content),
		Professional:      -analyzeProfessional(content),
		Urgency:           analyzeUrgency(subject + " " + content),
		Grammar:           analyzeGrammar(content),
	}

	total := 50 + b.Subject + b.Content + b.URLs + b.Sender +
		b.SocialEngineering + b.Professional + b.Urgency + b.Grammar
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	b.Total = total
	return b
}

func analyzeSubject(subject string) int {
	score := 0
	if containsAny(subject, urgentKeywords) {
		score += 15
	}
	if containsAny(subject, credentialKeywords) {
		score += 12
	}
	if containsAny(subject, securityKeywords) {
		score += 10
	}
	if len(subject) > 10 && subject == strings.ToUpper(subject) {
		score += 8
	}
	score += 5 * len(punctuationRegex.FindAllString(subject, -1))
	return capAt(score, 25)
}

func analyzeContent(content string) int {
	score := 0
	if containsAny(content, credentialKeywords) {
		score += 15
	}
	if containsAny(content, financialKeywords) {
		score += 12
	}
	if containsAny(content, threatKeywords) {
		score += 10
	}
	switch n := countMatches(content, callToActionKeywords); {
	case n > 2:
		score += 12
	case n > 0:
		score += 8
	}
	switch n := countOccurrences(content, urgentKeywords); {
	case n > 3:
		score += 10
	case n > 1:
		score += 5
	}
	if strings.Contains(content, "click the link below") || strings.Contains(content, "click here to") {
		score += 8
	}
	if strings.Contains(content, "verify your identity") || strings.Contains(content, "confirm your account") {
		score += 10
	}
	return capAt(score, 40)
}

func analyzeURLs(urls []string) int {
	if len(urls) == 0 {
		return 0
	}
	score := 0
	if len(urls) > 2 {
		score += 8
	}
	for _, url := range urls {
		if shortenerRegex.MatchString(url) {
			score += 10
		}
		if strings.HasPrefix(url, "http://") {
			score += 8
		}
		if ipInURLRegex.MatchString(url) {
			score += 12
		}
		lower := strings.ToLower(url)
		if strings.Contains(lower, "bank") || strings.Contains(lower, "secure") || strings.Contains(lower, "verify") {
			if m := domainRegex.FindStringSubmatch(url); m != nil {
				domain := strings.ToLower(m[1])
				if strings.Contains(domain, "free") || strings.Contains(domain, "click") ||
					strings.Contains(domain, "link") || len(domain) < 10 {
					score += 15
				}
			}
		}
	}
	return capAt(score, 20)
}

func analyzeSender(sender string) int {
	if sender == "" {
		return 0
	}
	score := 0
	for _, p := range suspiciousSenderPatterns {
		if p.MatchString(sender) {
			score += 5
			break
		}
	}
	if strings.Contains(sender, "noreply") || strings.Contains(sender, "no-reply") {
		score += 3
	}
	if numericRunRegex.MatchString(sender) {
		score += 4
	}
	return capAt(score, 10)
}

func analyzeSocialEngineering(text string) int {
	score := 0
	if containsAny(text, authorityKeywords) {
		score += 3
	}
	if containsAny(text, scarcityKeywords) {
		score += 4
	}
	if countMatches(text, reciprocityKeywords) > 0 {
		score += 2
	}
	if countMatches(text, consistencyKeywords) > 2 {
		score += 3
	}
	return capAt(score, 5)
}

func analyzeProfessional(content string) int {
	reduction := 0
	for _, ind := range professionalIndicators {
		if strings.Contains(content, ind) {
			reduction += 2
		}
	}
	if strings.Contains(content, "dear") &&
		(strings.Contains(content, "sincerely") || strings.Contains(content, "regards")) {
		reduction += 5
	}
	if phoneRegex.MatchString(content) {
		reduction += 3
	}
	return capAt(reduction, 15)
}

func analyzeUrgency(text string) int {
	score := 0
	switch n := countOccurrences(text, urgentKeywords); {
	case n > 4:
		score += 8
	case n > 2:
		score += 5
	case n > 0:
		score += 2
	}
	if strings.Contains(text, "within 24 hours") || strings.Contains(text, "within 48 hours") {
		score += 5
	}
	return capAt(score, 10)
}

func analyzeGrammar(content string) int {
	score := 0
	for _, m := range grammarMistakes {
		if m.MatchString(content) {
			score += 5
		}
	}
	if len(strings.Fields(content)) > 50 {
		if countRepeatedRuns(content) > 2 {
			score += 3
		}
	}
	return capAt(score, 8)
}

// countRepeatedRuns counts runs of the same rune repeated 4 or more
// times ("soooo", "!!!!"). RE2 has no backreferences, so this is a scan.
func countRepeatedRuns(s string) int {
	runs := 0
	var prev rune
	length := 0
	for _, r := range s {
		if r == prev {
			length++
		} else {
			prev, length = r, 1
		}
		if length == 4 {
			runs++
		}
	}
	return runs
}

// ExtractURLs pulls http/https URLs out of free text.
func ExtractURLs(text string) []string {
	return urlRegex.FindAllString(text, -1)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func countMatches(s string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(s, k) {
			n++
		}
	}
	return n
}

func countOccurrences(s string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		n += strings.Count(s, k)
	}
	return n
}

func capAt(v, max int) int {
	if v > max {
		return max
	}
	return v
}
