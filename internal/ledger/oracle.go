package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"boundless/config"
	"boundless/internal/domain"
	"boundless/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// Oracle supplies the XLM/USD exchange rate used for display-unit conversion.
type Oracle interface {
	XLMPriceUSD(ctx context.Context) (float64, error)
}

// HTTPOracle 调用外部价格预言机。不可用时返回 LedgerUnavailable，
// 调用方延后依赖换算的操作即可，不影响以 stroops 计价的路径。
type HTTPOracle struct {
	url        string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewHTTPOracle(cfg config.OracleConfig, logger *zap.Logger) *HTTPOracle {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPOracle{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:     logger,
	}
}

type priceResponse struct {
	Price float64 `json:"price"`
}

func (o *HTTPOracle) XLMPriceUSD(ctx context.Context) (float64, error) {
	var price float64

	err := o.cb.Execute(func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
		if reqErr != nil {
			return reqErr
		}

		resp, doErr := o.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return domain.Ef(domain.KindLedgerUnavailable, "price oracle status %d", resp.StatusCode)
		}

		var decoded priceResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
			return decodeErr
		}
		price = decoded.Price
		return nil
	})
	if err != nil {
		o.logger.Warn("price oracle unavailable", zap.Error(err))
		return 0, domain.Wrap(domain.KindLedgerUnavailable, "price oracle unavailable", err)
	}
	if price <= 0 {
		return 0, domain.Ef(domain.KindLedgerUnavailable, "price oracle returned non-positive rate %v", price)
	}
	return price, nil
}
