package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"boundless/config"
	"boundless/internal/domain"
	"boundless/pkg/circuitbreaker"
	"boundless/pkg/metrics"
	"boundless/pkg/trace"

	"go.uber.org/zap"
)

// Invoker submits one escrow operation and returns the transaction hash.
// Fakes implement this in tests.
type Invoker interface {
	Invoke(ctx context.Context, op Op, idemKey string) (string, error)
}

// Client 通过 RPC 网关调用托管账本合约，带熔断器
type Client struct {
	rpcURL     string
	contractID string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg config.LedgerConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// 连续失败3次后打开，确保 worker 快速失败并走重试队列
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		contractID: cfg.ContractAddress,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(cbConfig),
		logger:     logger,
	}
}

type invokeRequest struct {
	ContractID     string         `json:"contract_id"`
	Method         string         `json:"method"`
	Args           map[string]any `json:"args"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

type invokeResponse struct {
	Status    string `json:"status"`
	TxHash    string `json:"tx_hash"`
	ErrorCode int    `json:"error_code"`
}

// Invoke 提交一次合约调用。传输层失败归类为 LedgerUnavailable（可重试），
// 合约拒绝按错误码表解码且不计入熔断失败。
func (c *Client) Invoke(ctx context.Context, op Op, idemKey string) (string, error) {
	var txHash string
	var rejectErr error

	start := time.Now()
	err := c.cb.Execute(func() error {
		body, marshalErr := json.Marshal(invokeRequest{
			ContractID:     c.contractID,
			Method:         op.Name(),
			Args:           params(op),
			IdempotencyKey: idemKey,
		})
		if marshalErr != nil {
			return marshalErr
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL+"/invoke", bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		if idemKey != "" {
			req.Header.Set("Idempotency-Key", idemKey)
		}
		// 传播 trace_id
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName(), traceID)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("ledger rpc 5xx: %d", resp.StatusCode)
		}

		var decoded invokeResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
			return fmt.Errorf("decode ledger response: %w", decodeErr)
		}

		// 合约侧确定性拒绝：不算传输失败，不触发熔断
		if decoded.Status == "FAILED" || resp.StatusCode != http.StatusOK {
			if decoded.ErrorCode != 0 {
				rejectErr = DecodeCode(decoded.ErrorCode)
			} else {
				rejectErr = domain.Ef(domain.KindLedgerRejected, "ledger rpc status %d", resp.StatusCode)
			}
			return nil
		}

		txHash = decoded.TxHash
		return nil
	})
	latency := time.Since(start)

	if err != nil {
		metrics.RecordLedgerCallLatency(op.Name(), "unavailable", latency)
		c.logger.Warn("ledger call failed",
			zap.String("operation", op.Name()),
			zap.Error(err),
		)
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			return "", domain.Wrap(domain.KindLedgerUnavailable, "ledger circuit open", err)
		}
		return "", domain.Wrap(domain.KindLedgerUnavailable, "ledger rpc failed", err)
	}
	if rejectErr != nil {
		metrics.RecordLedgerCallLatency(op.Name(), "rejected", latency)
		return "", rejectErr
	}

	metrics.RecordLedgerCallLatency(op.Name(), "success", latency)
	return txHash, nil
}
