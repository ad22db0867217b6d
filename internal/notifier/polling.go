package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const pollRetryDelay = 5 * time.Second

// Reply is the answer to a chat command. A reply with a photo is sent as one
// photo message with Text as its caption.
type Reply struct {
	Text  string
	Photo []byte
}

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) Reply

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			t.Logger.Info("telegram polling stopped")
			return
		default:
		}

		updates, err := t.poll(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.Logger.Warn("polling request failed", zap.Error(err))
			sleep(ctx, pollRetryDelay)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			t.dispatch(ctx, handler, strings.TrimSpace(update.Message.Text))
		}
	}
}

func (t *TelegramNotifier) poll(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}
	var result struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram getUpdates: status %d", resp.StatusCode)
	}
	return result.Result, nil
}

func (t *TelegramNotifier) dispatch(ctx context.Context, handler CommandHandler, text string) {
	t.Logger.Info("received command", zap.String("command", text))
	reply := handler(ctx, text)

	var err error
	switch {
	case len(reply.Photo) > 0:
		err = t.SendPhoto(ctx, reply.Photo, reply.Text)
	case reply.Text != "":
		err = t.Send(ctx, reply.Text)
	}
	if err != nil {
		t.Logger.Error("send reply", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
