// Package botapi is the concrete platform.Client over the HTTP Bot API:
// form-encoded method calls, JSON envelope responses and long polling for the
// update stream.
package botapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-sentinel-bot/internal/platform"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	callTimeout    = 30 * time.Second
)

var (
	_ platform.Client = (*Client)(nil)
	_ platform.Source = (*Client)(nil)
)

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string // <base>/bot<token>
	fileURL    string // <base>/file/bot<token>

	mu   sync.Mutex
	self *platform.User
}

func NewClient(logger *slog.Logger, token string, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		// no client-level timeout; long polling holds the connection open
		// and every call carries its own deadline
		httpClient: &http.Client{},
		logger:     logger,
		apiURL:     baseURL + "/bot" + token,
		fileURL:    baseURL + "/file/bot" + token,
	}
}

// envelope is the wire response of every method call.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

type apiError struct {
	method      string
	code        int
	description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.method, e.code, e.description)
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !env.OK {
		return &apiError{method: method, code: env.ErrorCode, description: env.Description}
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, roomID int64, text string) (int64, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("text", text)

	var msg wireMessage
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) SendMessageWithActions(ctx context.Context, roomID int64, text string, actions []platform.Action) (int64, error) {
	markup, err := inlineKeyboard(actions)
	if err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("text", text)
	params.Set("reply_markup", markup)

	var msg wireMessage
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// inlineKeyboard renders one action per row.
func inlineKeyboard(actions []platform.Action) (string, error) {
	type button struct {
		Text string `json:"text"`
		Data string `json:"callback_data"`
	}
	rows := make([][]button, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, []button{{Text: a.Label, Data: a.Data}})
	}
	raw, err := json.Marshal(map[string]any{"inline_keyboard": rows})
	if err != nil {
		return "", fmt.Errorf("encode keyboard: %w", err)
	}
	return string(raw), nil
}

func (c *Client) EditMessage(ctx context.Context, roomID, messageID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	params.Set("text", text)
	return c.call(ctx, "editMessageText", params, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	return c.call(ctx, "deleteMessage", params, nil)
}

func (c *Client) DeleteMessages(ctx context.Context, roomID int64, messageIDs []int64) error {
	ids, err := json.Marshal(messageIDs)
	if err != nil {
		return fmt.Errorf("encode message ids: %w", err)
	}
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("message_ids", string(ids))
	return c.call(ctx, "deleteMessages", params, nil)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	params := url.Values{}
	params.Set("callback_query_id", callbackID)
	params.Set("text", text)
	params.Set("show_alert", strconv.FormatBool(alert))
	return c.call(ctx, "answerCallbackQuery", params, nil)
}

func (c *Client) RestrictMember(ctx context.Context, roomID, userID int64, perms platform.Permissions) error {
	raw, err := json.Marshal(map[string]bool{
		"can_send_messages":         perms.SendMessages,
		"can_send_media_messages":   perms.SendMedia,
		"can_send_other_messages":   perms.SendOther,
		"can_add_web_page_previews": perms.SendOther,
		"can_invite_users":          perms.InviteUsers,
	})
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("permissions", string(raw))
	return c.call(ctx, "restrictChatMember", params, nil)
}

func (c *Client) BanMember(ctx context.Context, roomID, userID int64, revokeMessages bool) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("revoke_messages", strconv.FormatBool(revokeMessages))
	return c.call(ctx, "banChatMember", params, nil)
}

func (c *Client) UnbanMember(ctx context.Context, roomID, userID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("only_if_banned", "true")
	return c.call(ctx, "unbanChatMember", params, nil)
}

func (c *Client) GetMember(ctx context.Context, roomID, userID int64) (*platform.Member, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(roomID, 10))
	params.Set("user_id", strconv.FormatInt(userID, 10))

	var m wireChatMember
	if err := c.call(ctx, "getChatMember", params, &m); err != nil {
		return nil, err
	}
	return m.toPlatform(), nil
}

func (c *Client) GetProfile(ctx context.Context, userID int64) (*platform.Profile, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(userID, 10))

	var chat struct {
		Bio       string `json:"bio"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
	}
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &platform.Profile{
		Bio:       chat.Bio,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Username:  chat.Username,
	}, nil
}

// GetAvatar returns the current profile photo. The stable file_unique_id is
// the content id; the bytes come from a follow-up file download. A user
// without a photo yields nil, nil.
func (c *Client) GetAvatar(ctx context.Context, userID int64) (*platform.Avatar, error) {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("limit", "1")

	var photos struct {
		Photos [][]struct {
			FileID       string `json:"file_id"`
			FileUniqueID string `json:"file_unique_id"`
			Width        int    `json:"width"`
		} `json:"photos"`
	}
	if err := c.call(ctx, "getUserProfilePhotos", params, &photos); err != nil {
		return nil, err
	}
	if len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return nil, nil
	}

	// pick the largest rendition of the newest photo
	sizes := photos.Photos[0]
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width > best.Width {
			best = s
		}
	}

	avatar := &platform.Avatar{ContentID: best.FileUniqueID}
	data, err := c.downloadFile(ctx, best.FileID)
	if err != nil {
		// the content id alone still allows exact matching
		c.logger.Debug("Failed to download avatar", "user_id", userID, "error", err)
		return avatar, nil
	}
	avatar.Data = data
	return avatar, nil
}

func (c *Client) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	params := url.Values{}
	params.Set("file_id", fileID)

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call(ctx, "getFile", params, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("getFile: empty file path")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+file.FilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("build file request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) Self(ctx context.Context) (*platform.User, error) {
	c.mu.Lock()
	if c.self != nil {
		defer c.mu.Unlock()
		return c.self, nil
	}
	c.mu.Unlock()

	var me wireUser
	if err := c.call(ctx, "getMe", url.Values{}, &me); err != nil {
		return nil, err
	}
	self := me.toPlatform()

	c.mu.Lock()
	c.self = &self
	c.mu.Unlock()
	return &self, nil
}
