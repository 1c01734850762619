// Package exchange Binance 用户数据流接入：listen key 握手、WebSocket 连接与保活
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/config"
)

const (
	spotListenKeyPath    = "/api/v3/userDataStream"
	futuresListenKeyPath = "/fapi/v1/listenKey"

	apiKeyHeader = "X-MBX-APIKEY"
)

// Binance 错误码：API key 无效 / 权限不足
const (
	codeInvalidAPIKey = -2014
	codeRejectedMBX   = -2015
)

// Dialer 实现 domain.StreamDialer
type Dialer struct {
	cfg        config.ExchangeConfig
	httpClient *http.Client
	wsDialer   *websocket.Dialer
	logger     *slog.Logger
}

// NewDialer 创建交易所流拨号器
func NewDialer(cfg config.ExchangeConfig, logger *slog.Logger) *Dialer {
	timeout := time.Duration(cfg.DialTimeout) * time.Second
	return &Dialer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		wsDialer:   &websocket.Dialer{HandshakeTimeout: timeout},
		logger:     logger,
	}
}

// Dial 建立用户数据流：先用 API key 换取 listen key，再连接推送通道。
// 凭证被拒绝时返回包装了 domain.ErrAuthRejected 的错误。
func (d *Dialer) Dial(ctx context.Context, creds domain.Credentials, kind domain.Kind) (domain.UserStream, error) {
	listenKey, err := d.createListenKey(ctx, creds.APIKey, kind)
	if err != nil {
		return nil, err
	}

	wsURL := fmt.Sprintf("%s/ws/%s", strings.TrimRight(d.cfg.WSEndpoint, "/"), listenKey)
	conn, resp, err := d.wsDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect user stream: %w", err)
	}

	s := &userStream{
		conn:      conn,
		dialer:    d,
		kind:      kind,
		apiKey:    creds.APIKey,
		listenKey: listenKey,
		done:      make(chan struct{}),
	}
	go s.keepalive(time.Duration(d.cfg.KeepaliveInterval) * time.Second)
	return s, nil
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (d *Dialer) listenKeyPath(kind domain.Kind) string {
	if kind == domain.KindFutures {
		return futuresListenKeyPath
	}
	return spotListenKeyPath
}

func (d *Dialer) createListenKey(ctx context.Context, apiKey string, kind domain.Kind) (string, error) {
	body, err := d.listenKeyRequest(ctx, http.MethodPost, apiKey, kind, "")
	if err != nil {
		return "", err
	}

	var result struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse listen key response: %w", err)
	}
	if result.ListenKey == "" {
		return "", fmt.Errorf("empty listen key in response")
	}
	return result.ListenKey, nil
}

func (d *Dialer) keepaliveListenKey(ctx context.Context, apiKey string, kind domain.Kind, listenKey string) error {
	_, err := d.listenKeyRequest(ctx, http.MethodPut, apiKey, kind, listenKey)
	return err
}

func (d *Dialer) closeListenKey(ctx context.Context, apiKey string, kind domain.Kind, listenKey string) error {
	_, err := d.listenKeyRequest(ctx, http.MethodDelete, apiKey, kind, listenKey)
	return err
}

func (d *Dialer) listenKeyRequest(ctx context.Context, method string, apiKey string, kind domain.Kind, listenKey string) ([]byte, error) {
	endpoint := strings.TrimRight(d.cfg.RESTEndpoint, "/") + d.listenKeyPath(kind)
	// 现货接口要求在保活/关闭时回传 listen key，合约接口按 API key 定位
	if listenKey != "" && kind == domain.KindSpot {
		endpoint += "?listenKey=" + url.QueryEscape(listenKey)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listen key request: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listen key request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read listen key response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
			apiErr.Code == codeInvalidAPIKey || apiErr.Code == codeRejectedMBX {
			return nil, fmt.Errorf("listen key request: status %d code %d: %w",
				resp.StatusCode, apiErr.Code, domain.ErrAuthRejected)
		}
		return nil, fmt.Errorf("listen key request: status %d: %s", resp.StatusCode, apiErr.Msg)
	}
	return body, nil
}

// userStream 单个用户的 WebSocket 推送流。保活协程定期续期 listen key，
// Close 停止保活并尽力注销 listen key。
type userStream struct {
	conn      *websocket.Conn
	dialer    *Dialer
	kind      domain.Kind
	apiKey    string
	listenKey string

	closeOnce sync.Once
	done      chan struct{}
}

// ReadMessage 读取下一条原始推送。阻塞读取依赖 Close 解除，
// ctx 取消后返回 ctx 的错误。
func (s *userStream) ReadMessage(ctx context.Context) ([]byte, error) {
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return payload, nil
}

// Close 关闭连接，幂等
func (s *userStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := s.dialer.closeListenKey(ctx, s.apiKey, s.kind, s.listenKey); cerr != nil {
			s.dialer.logger.Warn("failed to close listen key", "kind", s.kind, "error", cerr)
		}
	})
	return err
}

func (s *userStream) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.dialer.keepaliveListenKey(ctx, s.apiKey, s.kind, s.listenKey)
			cancel()
			if err != nil {
				s.dialer.logger.Warn("listen key keepalive failed", "kind", s.kind, "error", err)
			}
		}
	}
}
