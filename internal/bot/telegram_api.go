package bot

import (
	tgbot "github.com/go-telegram/bot"

	"gitlab.com/storeops/inventory-expense/internal/bot/mocks"
)

// TelegramAPI is an alias to the interface defined in the mocks package,
// which avoids an import cycle.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*tgbot.Bot)(nil)
