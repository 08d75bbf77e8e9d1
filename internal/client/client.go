// Package client 是后端 REST 接口的轻量客户端，供对账核心与 CLI 使用。
// 所有请求附带 Bearer token；非 2xx 响应映射为 *APIError。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

// APIError 携带 HTTP 状态码与服务端错误信息。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// Client 后端 REST 客户端。
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var rd io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if respBody != nil {
		return json.Unmarshal(data, respBody)
	}
	return nil
}

// Register 注册账号，返回新用户 id。
func (c *Client) Register(ctx context.Context, username, password, displayName, userType string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username, "password": password, "displayName": displayName, "userType": userType,
	}, &resp)
	return resp.ID, err
}

// LoginResult 登录响应。
type LoginResult struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	UserType    string `json:"userType"`
}

// Login 登录并在成功后把 token 装载到客户端。
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var resp LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username, "password": password,
	}, &resp); err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]*models.Room, error) {
	var rooms []*models.Room
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, kind models.RoomKind, participantID string) (*models.Room, error) {
	var room models.Room
	if err := c.do(ctx, http.MethodPost, "/rooms", map[string]string{
		"kind": string(kind), "participantId": participantID,
	}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// FetchMessages 拉取房间全量历史（轮询权威读）。
func (c *Client) FetchMessages(ctx context.Context, roomID string) ([]*models.Message, error) {
	var msgs []*models.Message
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID)+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage 发送消息，返回服务端确认后的权威消息。
func (c *Client) SendMessage(ctx context.Context, roomID, body string) (*models.Message, error) {
	var m models.Message
	if err := c.do(ctx, http.MethodPost, "/messages", map[string]string{
		"roomId": roomID, "body": body,
	}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WSURL 返回推送通道地址（含 token 查询参数）。
func (c *Client) WSURL() string {
	u := c.BaseURL
	if strings.HasPrefix(u, "https://") {
		u = "wss://" + strings.TrimPrefix(u, "https://")
	} else if strings.HasPrefix(u, "http://") {
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws?token=" + url.QueryEscape(c.Token)
}
