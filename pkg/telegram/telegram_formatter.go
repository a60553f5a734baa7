package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/utils"
)

// maxMessageLen keeps every part under Telegram's 4096 character limit.
const maxMessageLen = 4090

// FormatRunReport formats a completed daily run into one or more Markdown
// messages, splitting on line boundaries when the report is too long.
func FormatRunReport(r *dto.RunReport) []string {
	var header strings.Builder
	header.WriteString(fmt.Sprintf("📊 *Daily Run %s*\n", utils.FormatDate(r.AsOf)))
	header.WriteString(fmt.Sprintf("💰 *Equity:* %s\n", r.Equity.StringFixed(2)))
	header.WriteString(fmt.Sprintf("💵 *Cash:* %s\n", r.Cash.StringFixed(2)))
	if r.AIUsed {
		header.WriteString(fmt.Sprintf("🤖 *Model:* `%s`\n", r.Model))
	} else {
		header.WriteString("🤖 AI step skipped\n")
	}

	var lines []string
	if len(r.Holdings) > 0 {
		lines = append(lines, "", "📁 *Holdings*")
		for _, h := range r.Holdings {
			lines = append(lines, fmt.Sprintf("`%s` %d @ %s (last %s)", h.Symbol, h.Shares, h.AvgPrice.StringFixed(2), h.LastClose.StringFixed(2)))
		}
	}

	if trades := r.Trades(); len(trades) > 0 {
		lines = append(lines, "", "🧾 *Trades*")
		for _, t := range trades {
			lines = append(lines, formatTrade(t))
		}
	} else {
		lines = append(lines, "", "🧾 No trades today")
	}

	if skipped := r.Skipped(); len(skipped) > 0 {
		lines = append(lines, "", "⏭️ *Skipped orders*")
		for _, s := range skipped {
			lines = append(lines, fmt.Sprintf("%s `%s` x%d: `%s`", s.Side, s.Order.Symbol, s.Order.Quantity, s.Reason))
		}
	}

	return splitMessage(header.String(), lines)
}

func formatTrade(t entity.Trade) string {
	icon := "🟢"
	if t.Side == entity.TradeSideSell {
		icon = "🔴"
	}
	if t.Reason == entity.TradeReasonStopLoss {
		icon = "⚠️"
	}
	return fmt.Sprintf("%s %s `%s` x%d @ %s `%s`", icon, t.Side, t.Symbol, t.Quantity, t.Price.StringFixed(2), t.Reason)
}

// FormatRunFailure formats the alert sent when a run aborts.
func FormatRunFailure(asOf time.Time, runID string, err error) string {
	return fmt.Sprintf("📛 *Daily run failed* %s\n🔧 run `%s`\n```\n%s\n```\nNothing was saved.", utils.FormatDate(asOf), runID, err.Error())
}

// splitMessage packs lines into parts no longer than maxMessageLen. Every
// continuation part gets a short header.
func splitMessage(header string, lines []string) []string {
	var (
		messages []string
		current  strings.Builder
		part     = 1
	)
	current.WriteString(header)

	for _, line := range lines {
		if current.Len()+len(line)+1 > maxMessageLen {
			messages = append(messages, current.String())
			part++
			current.Reset()
			current.WriteString(fmt.Sprintf("--- *Part %d* ---\n", part))
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	return append(messages, current.String())
}
