package notifier

import (
	"context"
	"time"

	"crossbot/internal/order"
)

// TextSink 把派发结果渲染成消息推给 TextNotifier，实现 order.Sink。
type TextSink struct {
	n     TextNotifier
	nowFn func() time.Time
}

func NewTextSink(n TextNotifier) *TextSink {
	return &TextSink{n: n, nowFn: time.Now}
}

func (s *TextSink) Record(ctx context.Context, req order.Request, out order.Outcome) error {
	if s == nil || s.n == nil {
		return nil
	}
	return s.n.SendText(ctx, NewOutcomeMessage(req, out, s.nowFn()).RenderMarkdown())
}
