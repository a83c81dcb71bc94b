package backoffice

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/application/port"
)

// Config holds back-office endpoint settings
type Config struct {
	Endpoint  string
	Namespace string
	Operation string
	Timeout   time.Duration
	Auth      AuthConfig
}

// Defaults for the SOAP contract
const (
	DefaultNamespace = "urn:microsoft-dynamics-schemas/codeunit/TrashInspection"
	DefaultOperation = "SendTrashInspectionResult"
)

// Client implements port.BackOfficeClient as a SOAP 1.1 client
type Client struct {
	endpoint   string
	namespace  string
	operation  string
	auth       Authenticator
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a back-office client. The authenticator is resolved here, once.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("back office endpoint is required")
	}
	auth, err := NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Operation == "" {
		cfg.Operation = DefaultOperation
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Back office client configured",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("auth_mode", auth.Mode()))

	return &Client{
		endpoint:  cfg.Endpoint,
		namespace: cfg.Namespace,
		operation: cfg.Operation,
		auth:      auth,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: auth.Transport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

// SendResult posts the approval result and returns the endpoint's confirmation text
// Implements port.BackOfficeClient interface
func (c *Client) SendResult(ctx context.Context, req port.CallbackRequest) (string, error) {
	body, err := c.buildEnvelope(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build back office request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", fmt.Sprintf("%q", c.namespace+":"+c.operation))
	c.auth.Apply(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("back office request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read back office response: %w", err)
	}

	c.logger.Debug("Back office responded",
		zap.String("case_id", req.CaseID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return c.parseResponse(resp.StatusCode, raw)
}

type envelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    envelopeBody
}

type envelopeBody struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
	Content interface{}
}

type resultRequest struct {
	XMLName    xml.Name
	CaseID     string `xml:"caseId"`
	IsApproved bool   `xml:"isApproved"`
	Comment    string `xml:"comment"`
}

func (c *Client) buildEnvelope(req port.CallbackRequest) ([]byte, error) {
	env := envelope{
		Body: envelopeBody{
			Content: resultRequest{
				XMLName:    xml.Name{Space: c.namespace, Local: c.operation},
				CaseID:     req.CaseID,
				IsApproved: req.IsApproved,
				Comment:    req.Comment,
			},
		},
	}

	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode back office request: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Fault is a SOAP 1.1 fault returned by the endpoint
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

type responseEnvelope struct {
	Body struct {
		Fault  *Fault `xml:"Fault"`
		Result struct {
			ReturnValue string `xml:"return_value"`
		} `xml:",any"`
	} `xml:"Body"`
}

func (c *Client) parseResponse(status int, raw []byte) (string, error) {
	var env responseEnvelope
	decodeErr := xml.Unmarshal(raw, &env)

	if decodeErr == nil && env.Body.Fault != nil {
		return "", env.Body.Fault
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", fmt.Errorf("back office rejected credentials: status %d", status)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("back office returned status %d: %s", status, snippet(raw))
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode back office response: %w", decodeErr)
	}

	message := strings.TrimSpace(env.Body.Result.ReturnValue)
	if message == "" {
		message = "status " + strconv.Itoa(status)
	}
	return message, nil
}

const snippetLimit = 200

// snippet trims a response body for error messages, cutting at most
// snippetLimit bytes without splitting a multi-byte character.
func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) <= snippetLimit {
		return s
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var _ port.BackOfficeClient = (*Client)(nil)
