package authority

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

const (
	headerOTP       = "OTP"
	headerVersion   = "Accept-Version"
	headerClearance = "Clearance-Status"

	acceptVersion = "V2"
)

// Config tunes the client. Overrides redirect an environment's base URL,
// used by the hot-reloadable compliance config and by tests.
type Config struct {
	Timeout   time.Duration
	Overrides map[domain.Environment]string
}

// ClientParam collects client dependencies.
type ClientParam struct {
	fx.In

	Config Config
	Log    *zap.Logger
}

// Client implements domain.Authority over HTTPS/JSON.
type Client struct {
	http      *http.Client
	endpoints *Endpoints
	log       *zap.Logger
}

// NewClient builds the authority client.
func NewClient(p ClientParam) domain.Authority {
	timeout := p.Config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		endpoints: NewEndpoints(p.Config.Overrides),
		log:       p.Log.Named("compliance.authority"),
	}
}

type credentialRequest struct {
	CSR                 string `json:"csr,omitempty"`
	ComplianceRequestID string `json:"compliance_request_id,omitempty"`
}

type credentialResponse struct {
	RequestID           json.Number `json:"requestID"`
	BinarySecurityToken string      `json:"binarySecurityToken"`
	Secret              string      `json:"secret"`
}

type submissionRequest struct {
	InvoiceHash string `json:"invoiceHash"`
	UUID        string `json:"uuid"`
	Invoice     string `json:"invoice"`
}

type clearanceResponse struct {
	ClearedInvoice string `json:"clearedInvoice"`
}

// RequestComplianceCredential performs the OTP-gated first phase of the
// credential exchange. The CSR blob travels base64-encoded.
func (c *Client) RequestComplianceCredential(ctx context.Context, env domain.Environment, csr, otp string) (*domain.CredentialIssuance, error) {
	body := credentialRequest{CSR: base64.StdEncoding.EncodeToString([]byte(csr))}

	req, err := c.newRequest(ctx, env, pathCompliance, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerOTP, otp)

	_, raw, err := c.do(req, "compliance credential")
	if err != nil {
		return nil, err
	}
	return parseIssuance(raw)
}

// RequestProductionCredential exchanges a compliance credential for the
// clearance-grade production credential.
func (c *Client) RequestProductionCredential(ctx context.Context, env domain.Environment, cred domain.Credential, requestID string) (*domain.CredentialIssuance, error) {
	body := credentialRequest{ComplianceRequestID: requestID}

	req, err := c.newRequest(ctx, env, pathProductionCSIDs, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cred.Token, cred.Secret)

	_, raw, err := c.do(req, "production credential")
	if err != nil {
		return nil, err
	}
	return parseIssuance(raw)
}

// CheckInvoiceCompliance submits a document to the certification-check
// channel used while a tenant holds only the compliance credential.
func (c *Client) CheckInvoiceCompliance(ctx context.Context, env domain.Environment, cred domain.Credential, sub domain.Submission) (*domain.SubmissionResult, error) {
	return c.submit(ctx, env, cred, sub, pathComplianceInvoices, false)
}

// Report submits a simplified invoice to the asynchronous reporting channel.
func (c *Client) Report(ctx context.Context, env domain.Environment, cred domain.Credential, sub domain.Submission) (*domain.SubmissionResult, error) {
	return c.submit(ctx, env, cred, sub, pathReporting, false)
}

// Clear submits a standard invoice to the synchronous clearance channel and
// returns the cleared document from the response.
func (c *Client) Clear(ctx context.Context, env domain.Environment, cred domain.Credential, sub domain.Submission) (*domain.SubmissionResult, error) {
	return c.submit(ctx, env, cred, sub, pathClearance, true)
}

func (c *Client) submit(ctx context.Context, env domain.Environment, cred domain.Credential, sub domain.Submission, path string, clearance bool) (*domain.SubmissionResult, error) {
	body := submissionRequest{
		InvoiceHash: sub.InvoiceHash,
		UUID:        sub.UUID,
		Invoice:     base64.StdEncoding.EncodeToString(sub.Invoice),
	}

	req, err := c.newRequest(ctx, env, path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cred.Token, cred.Secret)
	if clearance {
		req.Header.Set(headerClearance, "1")
	}

	status, raw, err := c.do(req, path)
	if err != nil {
		return nil, err
	}

	result := &domain.SubmissionResult{StatusCode: status, Body: raw}
	if clearance {
		var cleared clearanceResponse
		if err := json.Unmarshal(raw, &cleared); err == nil && cleared.ClearedInvoice != "" {
			if xml, decErr := base64.StdEncoding.DecodeString(cleared.ClearedInvoice); decErr == nil {
				result.ClearedXML = xml
			}
		}
	}
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, env domain.Environment, path string, body any) (*http.Request, error) {
	url, err := c.endpoints.URL(env, path)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerVersion, acceptVersion)
	return req, nil
}

// do executes the request and maps the outcome onto the failure taxonomy:
// network faults become TransportError, non-2xx become RejectionError with
// the authority's body attached.
func (c *Client) do(req *http.Request, op string) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("authority call failed", zap.String("op", op), zap.Error(err))
		return 0, nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &domain.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Warn("authority rejected request",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return 0, nil, &domain.RejectionError{StatusCode: resp.StatusCode, Body: raw}
	}
	return resp.StatusCode, raw, nil
}

func parseIssuance(raw []byte) (*domain.CredentialIssuance, error) {
	var parsed credentialResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &domain.RejectionError{StatusCode: http.StatusOK, Body: raw}
	}
	return &domain.CredentialIssuance{
		Credential: domain.Credential{
			Token:  parsed.BinarySecurityToken,
			Secret: parsed.Secret,
		},
		RequestID: parsed.RequestID.String(),
		Raw:       raw,
	}, nil
}
