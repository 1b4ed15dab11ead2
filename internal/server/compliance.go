package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	compliancedomain "github.com/smallbiznis/fatoora/internal/compliance/domain"
	orderdomain "github.com/smallbiznis/fatoora/internal/order/domain"
)

func parseOrgID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("orgId")))
	if err != nil {
		AbortWithError(c, newValidationError("orgId", "invalid_id", "invalid organization id"))
		return 0, false
	}
	return id, true
}

func (s *Server) GetComplianceSettings(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	settings, err := s.complianceSvc.GetSettings(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

type upsertSettingsRequest struct {
	Enabled       bool `json:"enabled"`
	ShowOnInvoice bool `json:"show_on_invoice"`

	VATNumber              string `json:"vat_number"`
	CommercialRegistration string `json:"commercial_registration"`
	SellerName             string `json:"seller_name"`
	BusinessCategory       string `json:"business_category"`

	StreetName     string `json:"street_name"`
	BuildingNumber string `json:"building_number"`
	District       string `json:"district"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	PlotID         string `json:"plot_id"`

	Environment string `json:"environment"`
	SchemeTier  string `json:"scheme_tier"`
}

func (s *Server) UpsertComplianceSettings(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	var req upsertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	env := compliancedomain.Environment(req.Environment)
	switch env {
	case "", compliancedomain.EnvironmentSandbox, compliancedomain.EnvironmentSimulation, compliancedomain.EnvironmentProduction:
	default:
		AbortWithError(c, newValidationError("environment", "invalid_environment", "unknown environment"))
		return
	}

	tier := compliancedomain.SchemeTier(req.SchemeTier)
	switch tier {
	case "", compliancedomain.TierPhase1, compliancedomain.TierPhase2:
	default:
		AbortWithError(c, newValidationError("scheme_tier", "invalid_scheme_tier", "unknown scheme tier"))
		return
	}

	settings, err := s.complianceSvc.UpsertSettings(c.Request.Context(), &compliancedomain.Settings{
		OrgID:                  orgID,
		Enabled:                req.Enabled,
		ShowOnInvoice:          req.ShowOnInvoice,
		VATNumber:              req.VATNumber,
		CommercialRegistration: req.CommercialRegistration,
		SellerName:             req.SellerName,
		BusinessCategory:       req.BusinessCategory,
		StreetName:             req.StreetName,
		BuildingNumber:         req.BuildingNumber,
		District:               req.District,
		City:                   req.City,
		PostalCode:             req.PostalCode,
		PlotID:                 req.PlotID,
		Environment:            env,
		SchemeTier:             tier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) GenerateQR(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	var req compliancedomain.QRInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	code, err := s.complianceSvc.GenerateQR(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"qr": code}})
}

type customerRequest struct {
	Name           string `json:"name"`
	VATNumber      string `json:"vat_number"`
	StreetName     string `json:"street_name"`
	BuildingNumber string `json:"building_number"`
	District       string `json:"district"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	CountryCode    string `json:"country_code"`
}

type orderRequest struct {
	ReceiptNumber string           `json:"receipt_number"`
	Description   string           `json:"description"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	Currency      string           `json:"currency"`
	Customer      *customerRequest `json:"customer"`
}

func (r orderRequest) toOrder() orderdomain.Order {
	order := orderdomain.Order{
		ReceiptNumber: r.ReceiptNumber,
		Description:   r.Description,
		Quantity:      r.Quantity,
		Price:         r.Price,
		Currency:      r.Currency,
	}
	if r.Customer != nil {
		order.Customer = &orderdomain.Customer{
			Name:           r.Customer.Name,
			VATNumber:      r.Customer.VATNumber,
			StreetName:     r.Customer.StreetName,
			BuildingNumber: r.Customer.BuildingNumber,
			District:       r.Customer.District,
			City:           r.Customer.City,
			PostalCode:     r.Customer.PostalCode,
			CountryCode:    r.Customer.CountryCode,
		}
	}
	return order
}

func (s *Server) GenerateQRFromOrder(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	code, err := s.complianceSvc.GenerateQRFromOrder(c.Request.Context(), orgID, req.toOrder())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"qr": code}})
}

type generateInvoiceRequest struct {
	Type  string       `json:"type"`
	Order orderRequest `json:"order"`
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	generated, err := s.complianceSvc.GenerateInvoice(c.Request.Context(), orgID, req.Order.toOrder(), compliancedomain.InvoiceType(req.Type))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": generated})
}

func (s *Server) SubmitComplianceCheck(c *gin.Context) {
	s.submit(c, s.complianceSvc.SubmitComplianceCheck)
}

func (s *Server) SubmitReport(c *gin.Context) {
	s.submit(c, s.complianceSvc.SubmitReport)
}

func (s *Server) SubmitClearance(c *gin.Context) {
	s.submit(c, s.complianceSvc.SubmitClearance)
}

func (s *Server) submit(c *gin.Context, call func(ctx context.Context, orgID snowflake.ID, sub compliancedomain.Submission) (*compliancedomain.SubmissionResult, error)) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	var sub compliancedomain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if sub.UUID == "" || sub.InvoiceHash == "" || len(sub.Invoice) == 0 {
		AbortWithError(c, newValidationError("submission", "incomplete", "uuid, invoice_hash and invoice are required"))
		return
	}

	result, err := call(c.Request.Context(), orgID, sub)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetCSRSubject(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	subject, err := s.complianceSvc.CSRSubjectConfig(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subject})
}

type beginOnboardingRequest struct {
	CSR string `json:"csr"`
	OTP string `json:"otp"`
}

func (s *Server) BeginComplianceOnboarding(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	var req beginOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CSR) == "" {
		AbortWithError(c, newValidationError("csr", "required", "csr is required"))
		return
	}
	if strings.TrimSpace(req.OTP) == "" {
		AbortWithError(c, newValidationError("otp", "required", "otp is required"))
		return
	}

	settings, err := s.complianceSvc.BeginComplianceOnboarding(c.Request.Context(), orgID, req.CSR, req.OTP)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"onboarding_state": settings.OnboardingState(),
		"settings":         settings,
	}})
}

func (s *Server) CompleteProductionOnboarding(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	settings, err := s.complianceSvc.CompleteProductionOnboarding(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"onboarding_state": settings.OnboardingState(),
		"settings":         settings,
	}})
}
