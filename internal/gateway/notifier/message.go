package notifier

import (
	"fmt"
	"strings"
	"time"

	"crossbot/internal/order"
)

const maxStructuredMessageLen = 3800

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的推送。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// NewOutcomeMessage 把一次下单派发渲染成推送消息。
func NewOutcomeMessage(req order.Request, out order.Outcome, at time.Time) StructuredMessage {
	icon, verdict := "✅", "accepted"
	if !out.Accepted {
		icon, verdict = "⚠️", "rejected"
	}
	lines := []string{
		fmt.Sprintf("volume %g @ %g", req.Volume, req.EntryPrice),
		fmt.Sprintf("sl %g / tp %g (dev %d pts)", req.StopLoss, req.TakeProfit, req.Deviation),
	}
	result := []string{fmt.Sprintf("%s via %s", verdict, out.Venue)}
	if out.Accepted {
		result = append(result, fmt.Sprintf("fill %g order %s", out.FillPrice, out.OrderID))
	} else {
		result = append(result, strings.TrimSpace(out.VenueCode+" "+out.VenueMessage))
	}
	return StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("%s %s", req.Direction, req.Symbol),
		Sections: []MessageSection{
			{Title: "Order", Lines: lines},
			{Title: "Result", Lines: result},
		},
		Footer:    fmt.Sprintf("magic %d · %s", req.Magic, req.Tag),
		Timestamp: at,
	}
}

// RenderMarkdown 生成 Markdown 文本，超长时截断。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header + "\n\n")
	}
	b.WriteString(renderSections(m.Sections))
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer) + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxStructuredMessageLen {
		body = body[:maxStructuredMessageLen] + "..."
	}
	return body
}

func renderSections(secs []MessageSection) string {
	var b strings.Builder
	for _, sec := range secs {
		var lines []string
		for _, line := range sec.Lines {
			if text := strings.TrimSpace(line); text != "" {
				lines = append(lines, sanitize(text))
			}
		}
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(sanitize(title) + "\n")
		}
		for _, line := range lines {
			b.WriteString("- " + line + "\n")
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "```\n" + b.String() + "```\n\n"
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
