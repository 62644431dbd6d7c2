package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент платежного шлюза.
// Шлюз принимает idempotency key на каждый логический возврат и гарантирует
// не больше одного финансового эффекта на ключ.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента платежного шлюза
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Refund выполняет возврат средств. idempotencyKey передается шлюзу в заголовке:
// повторный запрос с тем же ключом не приводит ко второму списанию.
func (c *Client) Refund(ctx context.Context, req *RefundRequest, idempotencyKey string) (*RefundResponse, error) {
	url := fmt.Sprintf("%s/v1/refunds", c.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrInternal, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Сетевые ошибки и таймауты транзиентны - вызывающая сторона повторит
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// Продолжаем обработку
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		respBody, _ := io.ReadAll(resp.Body)
		c.log.Warn("PaymentGateway: refund rejected, status=%d, body=%s", resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("%w: status code %d: %s", ErrRefundRejected, resp.StatusCode, string(respBody))
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var refund RefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&refund); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	if refund.RefundReference == "" {
		return nil, fmt.Errorf("%w: empty refund reference", ErrInvalidResponse)
	}

	return &refund, nil
}
