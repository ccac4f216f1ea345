package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dh-form/domain"
)

// ErrComputeFailed covers every way a calculation request can fail:
// transport errors, non-2xx statuses and unusable bodies.
var ErrComputeFailed = errors.New("calculation failed")

// Calculator turns parameter rows into a transformation result.
type Calculator interface {
	Calculate(ctx context.Context, inputs []domain.ParameterInput) (domain.CalculationResult, error)
}

// ComputeClient calls the remote Denavit-Hartenberg service.
type ComputeClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewComputeClient builds a client for endpoint. A zero timeout leaves
// requests unbounded; they still end when ctx does.
func NewComputeClient(endpoint string, timeout time.Duration, logger *slog.Logger) *ComputeClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComputeClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *ComputeClient) Endpoint() string {
	return c.endpoint
}

type computeResponse struct {
	Result [][]flexFloat `json:"result"`
	Coord  *struct {
		X *flexFloat `json:"x"`
		Y *flexFloat `json:"y"`
		Z *flexFloat `json:"z"`
	} `json:"coord"`
}

type computeErrorResponse struct {
	Message string `json:"message"`
}

// Calculate sends one POST with the rows as a JSON array. It never retries.
func (c *ComputeClient) Calculate(
	ctx context.Context,
	inputs []domain.ParameterInput,
) (domain.CalculationResult, error) {
	if inputs == nil {
		inputs = []domain.ParameterInput{}
	}

	jsonData, err := json.Marshal(inputs)
	if err != nil {
		return domain.CalculationResult{}, fmt.Errorf("%w: encode request: %v", ErrComputeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return domain.CalculationResult{}, fmt.Errorf("%w: build request: %v", ErrComputeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("compute request failed", "endpoint", c.endpoint, "error", err)
		return domain.CalculationResult{}, fmt.Errorf("%w: %v", ErrComputeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.CalculationResult{}, fmt.Errorf("%w: read response: %v", ErrComputeFailed, err)
	}

	c.logger.Debug("compute response",
		"status", resp.StatusCode,
		"rows", len(inputs),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp computeErrorResponse
		detail := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			detail = errResp.Message
		}
		c.logger.Warn("compute service rejected request", "status", resp.StatusCode, "detail", detail)
		return domain.CalculationResult{}, fmt.Errorf("%w: status %d: %s", ErrComputeFailed, resp.StatusCode, detail)
	}

	var out computeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.logger.Warn("compute response is not valid JSON", "error", err)
		return domain.CalculationResult{}, fmt.Errorf("%w: decode response: %v", ErrComputeFailed, err)
	}

	return out.toResult()
}

func (r computeResponse) toResult() (domain.CalculationResult, error) {
	if r.Result == nil {
		return domain.CalculationResult{}, fmt.Errorf("%w: response has no result", ErrComputeFailed)
	}
	if r.Coord == nil || r.Coord.X == nil || r.Coord.Y == nil || r.Coord.Z == nil {
		return domain.CalculationResult{}, fmt.Errorf("%w: response has no coordinates", ErrComputeFailed)
	}

	matrix := make(domain.Matrix, len(r.Result))
	for i, row := range r.Result {
		matrix[i] = make([]float64, len(row))
		for j, v := range row {
			matrix[i][j] = float64(v)
		}
	}

	return domain.CalculationResult{
		Result: matrix,
		Coord: domain.Coordinate{
			X: float64(*r.Coord.X),
			Y: float64(*r.Coord.Y),
			Z: float64(*r.Coord.Z),
		},
	}, nil
}

// flexFloat accepts a JSON number or a string holding one.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return errors.New("number is null")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*f = flexFloat(v)
	return nil
}
