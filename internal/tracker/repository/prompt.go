package repository

import (
	"fmt"
	"strings"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/utils"
)

const decisionSystemPrompt = "You are a professional portfolio strategist trading ONLY U.S.-listed micro-cap stocks (<$300M cap). " +
	"Return pure JSON with fields: microCapOnly, buys[], sells[]. Buys include symbol, quantity, assumedPrice (if known), stopLossPercent, marketCapUsd. " +
	"Sells include symbol and quantity. Keep portfolio 3-4 names, allow full turnover weekly."

const decisionExample = `{"microCapOnly":true,"buys":[{"symbol":"ABCD","quantity":2,"assumedPrice":3.21,"stopLossPercent":8.0,"marketCapUsd":120000000}],"sells":[{"symbol":"WXYZ","quantity":1}]}`

func stopLossText(h entity.Holding, missing string) string {
	if h.StopLossPercent == nil {
		return missing
	}
	return h.StopLossPercent.String()
}

// BuildDecisionMessages renders the chat messages of a decision request: the
// strategist system prompt, the portfolio snapshot, a market summary and, when
// present, recent headlines.
func BuildDecisionMessages(req dto.DecisionRequest) []dto.Message {
	p := req.Portfolio
	asOf := utils.FormatDate(req.AsOf)

	var user strings.Builder
	fmt.Fprintf(&user, "As-Of: %s\n", asOf)
	if len(p.Holdings) == 0 {
		user.WriteString("Current Portfolio is empty.\n")
	} else {
		user.WriteString("Current Portfolio (symbol, shares, avgPrice, lastClose, stopLoss%):\n")
	}
	for _, h := range p.Holdings {
		fmt.Fprintf(&user, "- %s,%d,%s,%s,%s\n", h.Symbol, h.Shares, h.AvgPrice, h.LastClose, stopLossText(h, ""))
	}
	fmt.Fprintf(&user, "Cash: %s\n", p.Cash)
	if req.DeepResearch {
		user.WriteString("Deep research allowed today. You may fully rebalance.\n")
	}
	fmt.Fprintf(&user, "Return ONLY JSON. Example: %s\n", decisionExample)

	var summary strings.Builder
	fmt.Fprintf(&summary, "Market Data Summary:\nAs-Of %s, summarize holdings:\n", asOf)
	for _, h := range p.Holdings {
		fmt.Fprintf(&summary, "%s: lastClose=%s, avgPrice=%s, stopLoss%%=%s\n", h.Symbol, h.LastClose, h.AvgPrice, stopLossText(h, "n/a"))
	}

	messages := []dto.Message{
		{Role: "system", Content: decisionSystemPrompt},
		{Role: "user", Content: user.String()},
		{Role: "user", Content: summary.String()},
	}

	if len(req.Headlines) > 0 {
		var news strings.Builder
		news.WriteString("Recent market headlines (context only, verify before acting):\n")
		for _, h := range req.Headlines {
			fmt.Fprintf(&news, "- [%s] %s", h.PublishedAt.Format("2006-01-02 15:04"), h.Title)
			if h.Source != "" {
				fmt.Fprintf(&news, " (%s)", h.Source)
			}
			news.WriteString("\n")
			if h.Summary != "" {
				fmt.Fprintf(&news, "  %s\n", h.Summary)
			}
		}
		messages = append(messages, dto.Message{Role: "user", Content: news.String()})
	}

	return messages
}
