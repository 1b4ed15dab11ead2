package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	compliancedomain "github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/internal/compliance/onboarding"
	compliancerepository "github.com/smallbiznis/fatoora/internal/compliance/repository"
	complianceservice "github.com/smallbiznis/fatoora/internal/compliance/service"
	"github.com/smallbiznis/fatoora/internal/config"
	organizationdomain "github.com/smallbiznis/fatoora/internal/organization/domain"
	organizationservice "github.com/smallbiznis/fatoora/internal/organization/service"
)

type stubAuthority struct{}

func (stubAuthority) RequestComplianceCredential(context.Context, compliancedomain.Environment, string, string) (*compliancedomain.CredentialIssuance, error) {
	return &compliancedomain.CredentialIssuance{
		Credential: compliancedomain.Credential{Token: "tok", Secret: "sec"},
		RequestID:  "req-1",
	}, nil
}

func (stubAuthority) RequestProductionCredential(context.Context, compliancedomain.Environment, compliancedomain.Credential, string) (*compliancedomain.CredentialIssuance, error) {
	return &compliancedomain.CredentialIssuance{
		Credential: compliancedomain.Credential{Token: "ptok", Secret: "psec"},
	}, nil
}

func (stubAuthority) CheckInvoiceCompliance(context.Context, compliancedomain.Environment, compliancedomain.Credential, compliancedomain.Submission) (*compliancedomain.SubmissionResult, error) {
	return &compliancedomain.SubmissionResult{StatusCode: 200, Body: json.RawMessage(`{"clearanceStatus":"PASSED"}`)}, nil
}

func (stubAuthority) Report(context.Context, compliancedomain.Environment, compliancedomain.Credential, compliancedomain.Submission) (*compliancedomain.SubmissionResult, error) {
	return &compliancedomain.SubmissionResult{StatusCode: 200, Body: json.RawMessage(`{"reportingStatus":"REPORTED"}`)}, nil
}

func (stubAuthority) Clear(context.Context, compliancedomain.Environment, compliancedomain.Credential, compliancedomain.Submission) (*compliancedomain.SubmissionResult, error) {
	return &compliancedomain.SubmissionResult{StatusCode: 200}, nil
}

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&compliancedomain.Settings{}, &organizationdomain.Organization{}))

	repo := compliancerepository.NewRepository(compliancerepository.RepositoryParam{DB: db, Log: zap.NewNop()})
	holder, err := config.NewComplianceConfigHolder()
	require.NoError(t, err)

	complianceSvc := complianceservice.NewService(complianceservice.ServiceParam{
		Repo:      repo,
		Authority: stubAuthority{},
		Validator: onboarding.New(),
		Holder:    holder,
		Log:       zap.NewNop(),
	})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	organizationSvc := organizationservice.NewService(organizationservice.ServiceParam{DB: db, GenID: node, Log: zap.NewNop()})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{},
		DB:              db,
		ComplianceSvc:   complianceSvc,
		OrganizationSvc: organizationSvc,
	}), db
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func seedSettings(t *testing.T, s *Server, orgID string, tier string) {
	t.Helper()

	w := doJSON(t, s, http.MethodPut, "/api/v1/orgs/"+orgID+"/compliance/settings", gin.H{
		"enabled":         true,
		"vat_number":      "300000000000003",
		"seller_name":     "Acme Trading",
		"street_name":     "King Fahd Road",
		"building_number": "8091",
		"district":        "Al Olaya",
		"city":            "Riyadh",
		"postal_code":     "12214",
		"scheme_tier":     tier,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGetSettingsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/orgs/201/compliance/settings", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestUpsertAndGetSettings(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "202", "phase1")

	w := doJSON(t, s, http.MethodGet, "/api/v1/orgs/202/compliance/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data compliancedomain.Settings `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Trading", resp.Data.SellerName)
	assert.Equal(t, compliancedomain.EnvironmentSandbox, resp.Data.Environment)
	assert.Equal(t, compliancedomain.ZeroHash, resp.Data.PreviousInvoiceHash)
}

func TestUpsertSettingsRejectsUnknownEnvironment(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPut, "/api/v1/orgs/203/compliance/settings", gin.H{
		"vat_number":  "300000000000003",
		"seller_name": "Acme Trading",
		"environment": "staging",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateQREndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "204", "phase1")

	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs/204/compliance/qr", gin.H{
		"total":     "115.00",
		"vat_total": "15.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			QR string `json:"qr"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.QR)
}

func TestGenerateInvoiceEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "205", "phase2")

	body := gin.H{
		"type": "simplified",
		"order": gin.H{
			"receipt_number": "RCP-1001",
			"description":    "Consulting services",
			"quantity":       "1",
			"price":          "115.00",
			"currency":       "SAR",
		},
	}
	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs/205/compliance/invoices", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data compliancedomain.GeneratedInvoice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Data.Sequence)
	assert.NotEmpty(t, resp.Data.Hash)
	assert.NotEmpty(t, resp.Data.QR)
	assert.Contains(t, string(resp.Data.XML), "RCP-1001")
}

func TestGenerateInvoicePhase1Forbidden(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "206", "phase1")

	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs/206/compliance/invoices", gin.H{
		"type": "simplified",
		"order": gin.H{
			"description": "Consulting services",
			"price":       "115.00",
		},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGenerateInvoiceInvalidType(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "207", "phase2")

	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs/207/compliance/invoices", gin.H{
		"type":  "proforma",
		"order": gin.H{"description": "x", "price": "10.00"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitReportWithoutCredentialConflicts(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "208", "phase2")

	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs/208/compliance/invoices/report", gin.H{
		"uuid":         "11111111-1111-1111-1111-111111111111",
		"invoice_hash": "hash",
		"invoice":      []byte("<Invoice/>"),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOnboardingEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "209", "phase1")

	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs/209/compliance/onboarding/production", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/orgs/209/compliance/onboarding/compliance", gin.H{
		"csr": "csr-pem",
		"otp": "123456",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			State string `json:"onboarding_state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(compliancedomain.OnboardingComplianceIssued), resp.Data.State)

	w = doJSON(t, s, http.MethodPost, "/api/v1/orgs/209/compliance/onboarding/production", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(compliancedomain.OnboardingProductionReady), resp.Data.State)
}

func TestCSRSubjectEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	seedSettings(t, s, "210", "phase1")

	w := doJSON(t, s, http.MethodGet, "/api/v1/orgs/210/compliance/onboarding/csr-subject", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data compliancedomain.CSRSubject `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Trading", resp.Data.CommonName)
	assert.Equal(t, "TSTZATCA-Code-Signing", resp.Data.CertificateType)
}

func TestGetOrganization(t *testing.T) {
	s, db := newTestServer(t)
	require.NoError(t, db.Create(&organizationdomain.Organization{
		ID:       211,
		Name:     "Acme",
		Slug:     "acme",
		Metadata: datatypes.JSONMap{},
	}).Error)

	w := doJSON(t, s, http.MethodGet, "/api/v1/orgs/211", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/api/v1/orgs/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrganization(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/orgs", gin.H{
		"name":         "Acme Trading Co",
		"country_code": "sa",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data organizationdomain.Organization `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "acme-trading-co", resp.Data.Slug)
	assert.Equal(t, "SA", resp.Data.CountryCode)
	assert.NotZero(t, resp.Data.ID)

	// Same name derives the same slug, which the unique index rejects.
	w = doJSON(t, s, http.MethodPost, "/api/v1/orgs", gin.H{"name": "Acme Trading Co"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/orgs", gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
