// Package followup posts follow-up messages to an interaction's webhook.
package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-resty/resty/v2"

	"github.com/yarumotors/bot/core/buildinfo"
	"github.com/yarumotors/bot/core/logger"
)

// File is an attachment uploaded with a follow-up.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is the content of one follow-up.
type Message struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Files     []File
	Ephemeral bool
}

// StatusError reports a non-2xx answer from Discord.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("followup: discord answered %d: %s", e.Code, e.Body)
}

// StatusCode exposes the HTTP status for error classification.
func (e *StatusError) StatusCode() int { return e.Code }

type attachmentRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type payload struct {
	Content     string                    `json:"content,omitempty"`
	Embeds      []*discordgo.MessageEmbed `json:"embeds,omitempty"`
	Attachments []attachmentRef           `json:"attachments,omitempty"`
	Flags       discordgo.MessageFlags    `json:"flags,omitempty"`
}

// Client sends follow-ups. Interaction webhooks need no bot token: the
// per-interaction token in the path is the credential.
type Client struct {
	http *resty.Client
}

// New returns a client for apiBase (e.g. https://discord.com/api/v10).
// Requests are never retried, so a follow-up is posted at most once.
func New(apiBase string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(apiBase, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", buildinfo.UserAgent()).
		SetRetryCount(0)
	return &Client{http: c}
}

// Send posts msg as a follow-up to the interaction identified by appID and token.
func (c *Client) Send(ctx context.Context, appID, token string, msg Message) error {
	if appID == "" || token == "" {
		return errors.New("followup: application id and token are required")
	}
	body := payload{Content: msg.Content, Embeds: msg.Embeds}
	if msg.Ephemeral {
		body.Flags = discordgo.MessageFlagsEphemeral
	}
	for idx, f := range msg.Files {
		body.Attachments = append(body.Attachments, attachmentRef{ID: strconv.Itoa(idx), Filename: f.Name})
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("followup: encode payload: %w", err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"app": appID, "token": token}).
		SetMultipartField("payload_json", "", "application/json", bytes.NewReader(raw))
	for idx, f := range msg.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		req.SetMultipartField(fmt.Sprintf("files[%d]", idx), f.Name, ct, bytes.NewReader(f.Data))
	}

	resp, err := req.Post("/webhooks/{app}/{token}")
	if err != nil {
		return &transportError{msg: "followup: post: " + logger.Redact(err.Error(), token), err: err}
	}
	if resp.IsError() {
		return &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}
	return nil
}

// transportError hides the interaction token that net/http embeds in URL errors.
type transportError struct {
	msg string
	err error
}

func (e *transportError) Error() string { return e.msg }
func (e *transportError) Unwrap() error { return e.err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
