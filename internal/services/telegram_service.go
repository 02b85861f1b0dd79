package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

// IsConfigured reports whether both the bot token and admin chat are set.
func (s *TelegramService) IsConfigured() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// AdminLoginNotification describes a successful administrator sign-in.
type AdminLoginNotification struct {
	Name   string
	Email  string
	Source string
	IP     string
	At     time.Time
}

// NotifyAdminLogin alerts the admin chat that an administrator signed in.
func (s *TelegramService) NotifyAdminLogin(ctx context.Context, n AdminLoginNotification) error {
	if !s.IsConfigured() {
		return nil
	}
	return s.SendToAdmin(ctx, FormatAdminLogin(n))
}

// FormatAdminLogin renders the admin login alert as Telegram HTML.
func FormatAdminLogin(n AdminLoginNotification) string {
	var b strings.Builder
	b.WriteString("<b>🔐 Administrator sign-in</b>\n")
	fmt.Fprintf(&b, "<b>Name:</b> %s\n", html.EscapeString(n.Name))
	fmt.Fprintf(&b, "<b>Email:</b> %s\n", html.EscapeString(n.Email))
	if n.Source != "" {
		fmt.Fprintf(&b, "<b>Source:</b> %s\n", html.EscapeString(n.Source))
	}
	if n.IP != "" {
		fmt.Fprintf(&b, "<b>IP:</b> %s\n", html.EscapeString(n.IP))
	}
	fmt.Fprintf(&b, "<b>Time:</b> %s", n.At.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}
