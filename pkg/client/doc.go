// Package client is the PhishLens Go SDK.
//
// It talks to a running phishlens-server over its JSON HTTP API.
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithCacheTTL(5*time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	a, err := c.Analyze(ctx, "http://paypal.com.verify-account.net/login")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if a.Result.IsPhishing {
//	    fmt.Printf("phishing: risk %d/100 (%s)\n", a.Result.RiskScore, a.Result.AIVerdict)
//	}
//
// # Features only
//
// Features returns the lexical features and heuristic report without
// consulting the AI model:
//
//	f, err := c.Features(ctx, "http://192.168.0.1/login")
//
// # Errors
//
// Non-2xx responses are returned as *APIError carrying the status code and
// the server's error message.
package client
