// Package checker holds the individual site checks the audit engine
// runs against a target.
//
//   - Client wraps http.Client with the engine's user agent, timeouts
//     and a single retry on transport errors; FetchPage captures the
//     response body, headers, TLS state and time to first byte in one
//     round trip so downstream checks share it.
//   - Pure analyzers (AnalyzePage, AnalyzeSecurityHeaders,
//     ValidateStructuredData, ScanAccessibility) work on the fetched
//     document and headers and never touch the network.
//   - Remote checkers (WordPressChecker, VulnChecker,
//     SafeBrowsingChecker, PageSpeedChecker and the exposure probes on
//     Client) each talk to one external surface and degrade to neutral
//     results on failure or missing credentials.
//
// The orchestrator in internal/audit wires these together; nothing in
// this package knows about audits, events or storage.
package checker
