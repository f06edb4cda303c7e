// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// AgentErrorType represents the category of an agent initialization or stream failure.
type AgentErrorType int

const (
	AgentErrorUnknown AgentErrorType = iota
	AgentErrorNetwork
	AgentErrorAuth
	AgentErrorTimeout
	AgentErrorUnavailable
	AgentErrorRateLimit
)

// ClassifyAgentError categorizes an error returned by the model provider or the remote agent.
func ClassifyAgentError(err error) AgentErrorType {
	if err == nil {
		return AgentErrorUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return AgentErrorTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return AgentErrorNetwork
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return AgentErrorNetwork
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return AgentErrorTimeout
	case strings.Contains(lower, "unauthenticated") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "401") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "api key"):
		return AgentErrorAuth
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return AgentErrorRateLimit
	case strings.Contains(lower, "unavailable") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "504"):
		return AgentErrorUnavailable
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "rst_stream") || strings.Contains(lower, "no such host"):
		return AgentErrorNetwork
	}
	return AgentErrorUnknown
}

// AgentHint returns a one-line suggestion for the given category, or "" when none applies.
func AgentHint(t AgentErrorType) string {
	switch t {
	case AgentErrorAuth:
		return "Check your OpenAI API key with 'askdb settings' or OPENAI_API_KEY."
	case AgentErrorTimeout:
		return "The model provider took too long to respond. Try again in a moment."
	case AgentErrorNetwork:
		return "Could not reach the model provider. Check your network connection."
	case AgentErrorUnavailable:
		return "The model provider is temporarily unavailable."
	case AgentErrorRateLimit:
		return "Rate limited by the model provider. Wait a little and retry."
	}
	return ""
}

// FormatAgentError renders an agent failure for the terminal with a hint and masked details.
func FormatAgentError(title string, err error) string {
	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title))
	b.WriteString("\n")
	if hint := AgentHint(ClassifyAgentError(err)); hint != "" {
		b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ " + hint))
		b.WriteString("\n")
	}
	if err != nil {
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	}
	return b.String()
}
