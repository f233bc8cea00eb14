// Package dashboard implements the controller's line-oriented dashboard
// protocol on TCP port 29999.
//
// The protocol is newline-terminated ASCII with no status codes and no
// correlation between requests and replies: the client writes one command
// line and trusts that the next line it reads is the answer. Two quirks make
// this unreliable in practice. The server repeats its connection banner at
// arbitrary points mid-session, and a reply can be a leftover state word
// from a previous command ("Stopped" arriving as the answer to a just-issued
// "play"). Replies are therefore classified by substring rules, and a reply
// that matches neither the success nor the failure vocabulary of the command
// is treated as stale: it is discarded and the command is retried a bounded
// number of times.
//
// The classifier is table-driven so firmware-specific reply wording stays in
// one place and each rule is individually testable.
//
// All exchanges are serialized behind a single mutex spanning write+read, so
// concurrent callers queue instead of interleaving on the socket.
package dashboard
