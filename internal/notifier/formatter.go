package notifier

import (
	"fmt"
	"strings"
	"time"

	"KillZoneSentinel/internal/agent"
	"KillZoneSentinel/internal/model"
)

var eventIcons = map[model.EventKind]string{
	model.EventPlaced:    "📝",
	model.EventFilled:    "✅",
	model.EventTPHit:     "🎯",
	model.EventSLHit:     "🛑",
	model.EventTimeStop:  "⏱",
	model.EventExpired:   "⌛",
	model.EventCancelled: "❌",
}

// FormatOrderEvent formats one lifecycle event for Telegram.
func FormatOrderEvent(o model.OrderPlan, evt model.OrderEvent, acct model.AccountState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s %s\n", eventIcons[evt.Kind], evt.Kind, o.Symbol, strings.ToUpper(string(o.Direction))))
	b.WriteString(fmt.Sprintf("Time: %s\n", evt.Time.Format("2006-01-02 15:04")))

	switch evt.Kind {
	case model.EventPlaced:
		b.WriteString(fmt.Sprintf("Entry: %.2f | SL: %.2f | TP: %.2f\n", o.Entry, o.Stop, o.Target))
		b.WriteString(fmt.Sprintf("Size: %d | RR: %.2f\n", o.Size, o.RR))
		if reason := o.Metadata["reason"]; reason != "" {
			b.WriteString(fmt.Sprintf("Setup: %s\n", reason))
		}
	case model.EventFilled:
		b.WriteString(fmt.Sprintf("Filled at %.2f\n", evt.Price))
	default:
		if evt.Price != 0 {
			b.WriteString(fmt.Sprintf("Price: %.2f\n", evt.Price))
		}
		if evt.Reason != "" {
			b.WriteString(fmt.Sprintf("Reason: %s\n", evt.Reason))
		}
	}

	if evt.Realized {
		b.WriteString(fmt.Sprintf("P&L: %+.2f (%+.2fR)\n", evt.PnL, evt.R))
		b.WriteString(fmt.Sprintf("Equity: %.2f | Day: %+.2f\n", acct.Equity, acct.DailyPnL))
	}
	return b.String()
}

// FormatHalt formats a trading halt.
func FormatHalt(h model.HaltEvent) string {
	return fmt.Sprintf("⚠️ <b>Trading halted</b>\n\nReason: %s\nAt: %s\nNew orders resume next trading day.",
		h.Reason, h.Time.Format("2006-01-02 15:04"))
}

// FormatStats formats trade statistics.
func FormatStats(s agent.Stats) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s summary</b>\n\n", s.Symbol))
	b.WriteString(fmt.Sprintf("Closed trades: %d\n", s.ClosedTrades))
	b.WriteString(fmt.Sprintf("Win rate: %.1f%%\n", s.WinRate*100))
	b.WriteString(fmt.Sprintf("Avg R: %+.2f\n", s.AvgR))
	b.WriteString(fmt.Sprintf("Total P&L: %+.2f\n", s.TotalPnL))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", s.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("Equity: %.2f\n", s.FinalEquity))
	return b.String()
}

// FormatStatus formats the agent status.
func FormatStatus(s agent.Status) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>%s status</b>\n\n", s.Symbol))
	if s.LastBar.IsZero() {
		b.WriteString("No bars processed yet\n")
	} else {
		b.WriteString(fmt.Sprintf("Last bar: %s @ %.2f\n", s.LastBar.Format("2006-01-02 15:04"), s.LastPrice))
		b.WriteString(fmt.Sprintf("Session: %s\n", s.Session))
	}
	state := "ACTIVE"
	if s.Halted {
		state = "HALTED (" + s.HaltReason + ")"
	}
	b.WriteString(fmt.Sprintf("Supervisor: %s\n", state))
	b.WriteString(fmt.Sprintf("Broker: %s | Open orders: %d\n", s.Broker, s.OpenOrders))
	b.WriteString(fmt.Sprintf("Equity: %.2f | Day: %+.2f | Week: %+.2f\n", s.Account.Equity, s.Account.DailyPnL, s.Account.WeeklyPnL))
	b.WriteString(fmt.Sprintf("Trades today: %d\n", s.Account.TradesToday))
	return b.String()
}

// FormatOrders lists orders, newest last.
func FormatOrders(orders []model.OrderPlan) string {
	if len(orders) == 0 {
		return "No open orders"
	}
	var b strings.Builder
	b.WriteString("📋 <b>Orders</b>\n\n")
	for _, o := range orders {
		b.WriteString(fmt.Sprintf("%s %s %s entry %.2f sl %.2f tp %.2f size %d\n",
			shortID(o.ID), o.State, o.Direction, o.Entry, o.Stop, o.Target, o.Size))
	}
	return b.String()
}

// FormatDailyReport formats the end-of-day report.
func FormatDailyReport(day time.Time, s agent.Stats, acct model.AccountState, exportPath string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Daily report</b> | %s\n\n", day.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Day P&L: %+.2f (%d trades)\n", acct.DailyPnL, acct.TradesToday))
	b.WriteString(FormatStats(s))
	if exportPath != "" {
		b.WriteString(fmt.Sprintf("\nExported: %s\n", exportPath))
	}
	return b.String()
}

// FormatWeeklyReport formats the week's P&L.
func FormatWeeklyReport(acct model.AccountState) string {
	return fmt.Sprintf("🗓 <b>Weekly report</b>\n\nWeek P&L: %+.2f\nEquity: %.2f\nMax drawdown: %.2f%%",
		acct.WeeklyPnL, acct.Equity, acct.MaxDrawdown*100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
