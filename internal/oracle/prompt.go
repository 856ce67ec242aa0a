package oracle

import (
	"fmt"
	"strings"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

// systemInstruction frames the model as a phishing analyst that answers
// only in the verdict schema.
const systemInstruction = `You are a cybersecurity analyst specialising in phishing URL detection.
Answer only with a JSON object containing isPhishing, confidence (0 to 1),
riskScore (0 to 100) and aiVerdict (a short explanation for an end user).`

// BuildPrompt renders the analysis request sent to the oracle. It carries
// every feature and the heuristic score so the model can agree with or
// override the local verdict.
func BuildPrompt(f urlfeatures.URLFeatures, heuristic int) string {
	var b strings.Builder
	b.WriteString("Perform a cybersecurity phishing analysis on the following URL features.\n")
	fmt.Fprintf(&b, "URL: %s\n", f.URL)
	fmt.Fprintf(&b, "Length: %d\n", f.Length)
	fmt.Fprintf(&b, "Has @: %t\n", f.HasAtSymbol)
	fmt.Fprintf(&b, "Is HTTPS: %t\n", f.HasHTTPS)
	fmt.Fprintf(&b, "Dots: %d\n", f.DotCount)
	fmt.Fprintf(&b, "Is IP: %t\n", f.IsIPAddress)
	fmt.Fprintf(&b, "Basic Heuristic Risk Score: %d/100\n", heuristic)
	b.WriteString("\nProvide a detailed verdict.")
	return b.String()
}
