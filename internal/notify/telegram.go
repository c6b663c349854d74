package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wnt/curvewatch/internal/utils"
)

// ErrMissingBotToken is returned when the Telegram channel is built
// without a bot token
var ErrMissingBotToken = errors.New("telegram bot token is not set")

// Telegram delivers messages through the Telegram bot API
type Telegram struct {
	httpClient *utils.HTTPClient
	token      string
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram creates a Telegram channel. baseURL overrides the bot API
// host in tests; pass "" for the production host.
func NewTelegram(token, baseURL string) (*Telegram, error) {
	if token == "" {
		return nil, ErrMissingBotToken
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		httpClient: utils.NewHTTPClient(utils.WithBaseURL(baseURL)),
		token:      token,
	}, nil
}

// Name identifies the channel in logs and history
func (t *Telegram) Name() string {
	return "telegram"
}

// Send posts one message to a chat. The bot API reports logical
// failures inside a 200 response, so the ok flag is checked too.
func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	path := fmt.Sprintf("/bot%s/sendMessage", t.token)

	response, err := t.httpClient.Post(ctx, path, map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}

	var body telegramResponse
	if err := response.DecodeJSON(&body); err != nil {
		return fmt.Errorf("malformed telegram response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("telegram rejected message: %s", body.Description)
	}

	return nil
}
