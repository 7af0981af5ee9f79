package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// TelegramService delivers operator alerts (the daily collections digest)
// to the office chat
type TelegramService struct {
	botToken   string
	chatID     string
	httpClient *http.Client
}

// NewTelegramService creates a new Telegram service instance
func NewTelegramService() *TelegramService {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if botToken == "" || chatID == "" {
		log.Printf("WARNING: Telegram credentials not configured; collection alerts disabled")
	}

	return &TelegramService{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether credentials are configured
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.chatID != ""
}

// SendMessage posts a Markdown message to the configured chat
func (s *TelegramService) SendMessage(ctx context.Context, text string) error {
	if !s.Enabled() {
		return fmt.Errorf("telegram is not configured")
	}

	payload := map[string]string{
		"chat_id":    s.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
