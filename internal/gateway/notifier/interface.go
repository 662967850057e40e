package notifier

import "context"

// TextNotifier 是最小的文本推送接口，Telegram 等实现都挂在它后面。
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
